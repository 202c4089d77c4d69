package delta

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// EventFilter decides when, or whether, a delivery runs. It receives the
// delivery as invoke and may call it now, later, or never. A filter that
// never calls invoke silently drops the change; that is not an error.
type EventFilter func(invoke func())

// BypassFilter invokes every delivery immediately.
func BypassFilter(invoke func()) {
	invoke()
}

// WatchWithFilter creates a Watcher that routes every detected change
// through filter instead of calling cb directly. A nil filter panics with
// ErrInvalidConfig.
//
// Deep comparison here does not special-case time.Time; two instants in
// different locations count as a change.
//
// Example:
//
//	debounce := delta.NewDebounceFilter(clockz.RealClock, 200*time.Millisecond)
//	w := delta.WatchWithFilter(ctx, src, debounce.Filter, onChange)
func WatchWithFilter[V any](ctx context.Context, src Source[V], filter EventFilter, cb Callback[V], opts ...Option) *Watcher[V] {
	if filter == nil {
		invalid("filtered watcher requires an event filter")
	}
	cfg := newConfig(opts)
	w := newWatcher(ctx, "filtered", src, cb, cfg)
	w.filter = filter
	w.start(cfg.Immediate)
	return w
}

// DebounceFilter delays each invocation until d has passed without another
// one arriving. Only the most recent invocation runs, on the clock's timer
// goroutine, so the callback may run after the Tick that caused it returned.
type DebounceFilter struct {
	clock clockz.Clock
	delay time.Duration

	mu      sync.Mutex
	pending func()
	gen     uint64
	timer   clockz.Timer
	cancel  context.CancelFunc
}

// NewDebounceFilter creates a DebounceFilter with the given quiet window.
func NewDebounceFilter(clock clockz.Clock, d time.Duration) *DebounceFilter {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &DebounceFilter{clock: clock, delay: d}
}

// Filter is the EventFilter for this debouncer.
func (f *DebounceFilter) Filter(invoke func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopLocked()
	f.pending = invoke

	timer := f.clock.NewTimer(f.delay)
	ctx, cancel := context.WithCancel(context.Background())
	f.timer, f.cancel = timer, cancel
	go f.wait(ctx, timer, f.gen)
}

func (f *DebounceFilter) wait(ctx context.Context, timer clockz.Timer, gen uint64) {
	select {
	case <-ctx.Done():
		return
	case <-timer.C():
	}

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return
	}
	invoke := f.pending
	f.pending = nil
	f.timer, f.cancel = nil, nil
	f.mu.Unlock()

	if invoke != nil {
		invoke()
	}
}

// Flush runs the pending invocation now, if any.
func (f *DebounceFilter) Flush() {
	f.mu.Lock()
	invoke := f.pending
	f.pending = nil
	f.stopLocked()
	f.mu.Unlock()

	if invoke != nil {
		invoke()
	}
}

// Cancel drops the pending invocation, if any.
func (f *DebounceFilter) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = nil
	f.stopLocked()
}

func (f *DebounceFilter) stopLocked() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.cancel()
		f.timer, f.cancel = nil, nil
	}
}

// ThrottleFilter invokes at most once per window. Invocations arriving
// inside the window are dropped, not deferred.
type ThrottleFilter struct {
	clock  clockz.Clock
	window time.Duration

	mu   sync.Mutex
	last time.Time
	ran  bool
}

// NewThrottleFilter creates a ThrottleFilter with the given window.
func NewThrottleFilter(clock clockz.Clock, window time.Duration) *ThrottleFilter {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &ThrottleFilter{clock: clock, window: window}
}

// Filter is the EventFilter for this throttle.
func (f *ThrottleFilter) Filter(invoke func()) {
	f.mu.Lock()
	now := f.clock.Now()
	if f.ran && now.Sub(f.last) < f.window {
		f.mu.Unlock()
		return
	}
	f.last, f.ran = now, true
	f.mu.Unlock()

	invoke()
}

// PausableFilter drops invocations while paused.
type PausableFilter struct {
	paused atomic.Bool
}

// Filter is the EventFilter for this gate.
func (f *PausableFilter) Filter(invoke func()) {
	if f.paused.Load() {
		return
	}
	invoke()
}

// Pause starts dropping invocations.
func (f *PausableFilter) Pause() { f.paused.Store(true) }

// Resume stops dropping invocations.
func (f *PausableFilter) Resume() { f.paused.Store(false) }

// IsActive reports whether invocations pass through.
func (f *PausableFilter) IsActive() bool { return !f.paused.Load() }
