package delta

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestWatchWithFilter_NilFilterPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig panic, got %v", r)
		}
	}()
	WatchWithFilter(context.Background(), Value(1), nil, func(_, _ int, _ func(func())) {})
}

func TestWatchWithFilter_Bypass(t *testing.T) {
	v := NewRef(1)
	rec := &recorder[int]{}
	w := WatchWithFilter(context.Background(), v.Source(), BypassFilter, rec.cb)

	v.Set(2)
	_ = w.Tick()

	if len(rec.calls) != 1 || rec.calls[0].curr != 2 || rec.calls[0].prev != 1 {
		t.Errorf("expected single (2, 1) delivery, got %+v", rec.calls)
	}
}

func TestWatchWithFilter_NeverInvokingFilter(t *testing.T) {
	v := NewRef(1)
	rec := &recorder[int]{}
	var seen int
	w := WatchWithFilter(context.Background(), v.Source(), func(_ func()) { seen++ }, rec.cb)

	v.Set(2)
	if err := w.Tick(); err != nil {
		t.Errorf("expected dropped delivery not to be an error, got %v", err)
	}

	if seen != 1 {
		t.Errorf("expected filter to see 1 change, got %d", seen)
	}
	if len(rec.calls) != 0 {
		t.Errorf("expected no deliveries, got %d", len(rec.calls))
	}
	if w.HasFired() {
		t.Error("expected HasFired false")
	}
}

// Filtered watchers use plain deep Equal, like pausable watchers.
func TestWatchWithFilter_DeepDoesNotSpecialCaseDates(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := NewRef(at)
	rec := &recorder[time.Time]{}
	w := WatchWithFilter(context.Background(), now.Source(), BypassFilter, rec.cb, Deep())

	now.Set(at.In(time.FixedZone("UTC+1", 3600)))
	_ = w.Tick()

	if len(rec.calls) != 1 {
		t.Errorf("expected a delivery for the zone change, got %d calls", len(rec.calls))
	}
}

func TestDebounceFilter_RunsLatest(t *testing.T) {
	clock := clockz.NewFakeClock()
	debounce := NewDebounceFilter(clock, 100*time.Millisecond)

	v := NewRef(0)
	var (
		calls atomic.Int32
		last  atomic.Int64
		prev  atomic.Int64
	)
	w := WatchWithFilter(context.Background(), v.Source(), debounce.Filter, func(curr, p int, _ func(func())) {
		calls.Add(1)
		last.Store(int64(curr))
		prev.Store(int64(p))
	})

	for i := 1; i <= 3; i++ {
		v.Set(i)
		_ = w.Tick()
	}

	if calls.Load() != 0 {
		t.Fatalf("expected no calls before the window passes, got %d", calls.Load())
	}

	clock.Advance(150 * time.Millisecond)
	clock.BlockUntilReady()

	waitFor(t, func() bool { return calls.Load() == 1 })
	if last.Load() != 3 || prev.Load() != 2 {
		t.Errorf("expected (3, 2), got (%d, %d)", last.Load(), prev.Load())
	}

	// Superseded timers must not fire.
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls.Load())
	}
}

func TestDebounceFilter_FlushAndCancel(t *testing.T) {
	clock := clockz.NewFakeClock()
	debounce := NewDebounceFilter(clock, time.Second)

	var ran atomic.Int32
	debounce.Filter(func() { ran.Add(1) })
	debounce.Flush()
	if ran.Load() != 1 {
		t.Errorf("expected Flush to run the pending invocation, got %d", ran.Load())
	}

	debounce.Filter(func() { ran.Add(1) })
	debounce.Cancel()
	clock.Advance(2 * time.Second)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)

	if ran.Load() != 1 {
		t.Errorf("expected Cancel to drop the pending invocation, got %d", ran.Load())
	}

	debounce.Flush()
	if ran.Load() != 1 {
		t.Errorf("expected Flush with nothing pending to do nothing, got %d", ran.Load())
	}
}

func TestThrottleFilter_DropsInsideWindow(t *testing.T) {
	clock := clockz.NewFakeClock()
	throttle := NewThrottleFilter(clock, time.Second)

	v := NewRef(0)
	rec := &recorder[int]{}
	w := WatchWithFilter(context.Background(), v.Source(), throttle.Filter, rec.cb)

	v.Set(1)
	_ = w.Tick()
	v.Set(2)
	_ = w.Tick()

	if len(rec.calls) != 1 {
		t.Fatalf("expected second change to be dropped, got %d calls", len(rec.calls))
	}

	clock.Advance(time.Second)
	v.Set(3)
	_ = w.Tick()

	if len(rec.calls) != 2 {
		t.Fatalf("expected change after the window to run, got %d calls", len(rec.calls))
	}
	if rec.calls[1].curr != 3 || rec.calls[1].prev != 2 {
		t.Errorf("expected (3, 2), got (%d, %d)", rec.calls[1].curr, rec.calls[1].prev)
	}
}

func TestPausableFilter(t *testing.T) {
	gate := &PausableFilter{}
	v := NewRef(0)
	rec := &recorder[int]{}
	w := WatchWithFilter(context.Background(), v.Source(), gate.Filter, rec.cb)

	gate.Pause()
	if gate.IsActive() {
		t.Error("expected inactive while paused")
	}
	v.Set(1)
	_ = w.Tick()

	gate.Resume()
	v.Set(2)
	_ = w.Tick()

	if len(rec.calls) != 1 || rec.calls[0].prev != 1 {
		t.Errorf("expected single delivery with prev 1, got %+v", rec.calls)
	}
}
