// Package testing provides test utilities and helpers for delta watchers,
// history stores and pumps.
package testing

import (
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/delta"
)

// Call is one recorded watcher delivery.
type Call[V any] struct {
	Curr V
	Prev V
}

// Recorder collects watcher deliveries. It is safe to use from filters that
// deliver on another goroutine.
type Recorder[V any] struct {
	mu    sync.Mutex
	calls []Call[V]
}

// Callback is a delta.Callback that records every delivery.
func (r *Recorder[V]) Callback(curr, prev V, _ func(func())) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call[V]{Curr: curr, Prev: prev})
}

// Calls returns a copy of the recorded deliveries.
func (r *Recorder[V]) Calls() []Call[V] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call[V](nil), r.calls...)
}

// Len returns the number of recorded deliveries.
func (r *Recorder[V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Last returns the most recent delivery and true, or the zero Call and false.
func (r *Recorder[V]) Last() (Call[V], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return Call[V]{}, false
	}
	return r.calls[len(r.calls)-1], true
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the pump reaches the expected state or timeout occurs.
func WaitForState(t *testing.T, p *delta.Pump, expected delta.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return p.State() == expected
	})
}

// RequireState fails the test immediately if the pump is not in the expected state.
func RequireState(t *testing.T, p *delta.Pump, expected delta.State) {
	t.Helper()
	if got := p.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// RequireHistory fails the test if the history's snapshots, most recent
// first, do not equal want.
func RequireHistory[V comparable](t *testing.T, h *delta.History[V], want ...V) {
	t.Helper()
	entries := h.History()
	got := make([]V, len(entries))
	for i, e := range entries {
		got[i] = e.Snapshot
	}
	if len(got) != len(want) {
		t.Fatalf("expected history %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected history %v, got %v", want, got)
		}
	}
}

// NewTestPump creates a sync-mode pump over the given targets. Send on the
// returned channel, then call Process, to run one round.
func NewTestPump(t *testing.T, targets ...delta.Tickable) (*delta.Pump, chan<- struct{}) {
	t.Helper()
	ch := make(chan struct{}, 10)
	p := delta.NewPump(delta.NewSyncChannelScheduler(ch), targets...).SyncMode()
	return p, ch
}
