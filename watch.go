package delta

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// Callback receives a delivered change. onCleanup registers a function that
// runs before the next delivery and on Stop; the last registration wins.
type Callback[V any] func(curr, prev V, onCleanup func(func()))

// Tickable is anything re-evaluated by a scheduling trigger.
type Tickable interface {
	// Tick re-evaluates the source once.
	Tick() error
}

// Watcher observes a single source and delivers its changes.
//
// A Watcher never evaluates on its own: each call to Tick is one scheduling
// trigger. Ticks for one watcher must not overlap. Calling Tick from inside
// the watcher's own callback deadlocks.
type Watcher[V any] struct {
	ctx   context.Context
	kind  string
	src   Source[V]
	deep  bool
	clone CloneFunc[V]
	equal func(a, b V) bool
	cb    Callback[V]

	// gate decides whether a detected change is delivered. It runs with mu
	// held; returning false tracks the change without delivering it.
	gate func(curr, prev V) bool

	// filter, when set, receives each delivery and decides when to run it.
	filter EventFilter

	// delivered runs after every delivery, under dmu.
	delivered func()

	mu          sync.Mutex
	previous    V
	hasPrevious bool

	dmu      sync.Mutex
	hasFired atomic.Bool
	cleanup  atomic.Pointer[func()]
	stopped  atomic.Bool
}

// Watch creates a Watcher over src and seeds it with the current value.
// With Immediate, the current value is delivered at once with the zero
// value as previous.
//
// Changes are detected with == (identity for reference types). With Deep,
// values are cloned on every snapshot and compared structurally, with
// time.Time compared by instant.
//
// Example:
//
//	count := 0
//	w := delta.Watch(ctx, delta.Getter(func() int { return count }),
//	    func(curr, prev int, _ func(func())) {
//	        log.Printf("count %d -> %d", prev, curr)
//	    },
//	)
//	count++
//	_ = w.Tick() // delivers (1, 0)
func Watch[V any](ctx context.Context, src Source[V], cb Callback[V], opts ...Option) *Watcher[V] {
	cfg := newConfig(opts)
	w := newWatcher(ctx, "watch", src, cb, cfg)
	if cfg.Deep {
		w.equal = func(a, b V) bool { return EqualDates(a, b) }
	}
	w.start(cfg.Immediate)
	return w
}

// newWatcher builds an unseeded watcher with shallow comparison. Callers
// adjust hooks and then call start.
func newWatcher[V any](ctx context.Context, kind string, src Source[V], cb Callback[V], cfg *config) *Watcher[V] {
	if cb == nil {
		invalid("%s watcher requires a callback", kind)
	}
	w := &Watcher[V]{
		ctx:  ctx,
		kind: kind,
		src:  src,
		deep: cfg.Deep,
		cb:   cb,
	}
	if cfg.Deep {
		w.clone = cloneFor[V](cfg)
		w.equal = func(a, b V) bool { return Equal(a, b, true) }
	} else {
		w.equal = func(a, b V) bool { return Equal(a, b, false) }
	}
	return w
}

// start seeds previous from the source, delivering it when immediate.
// A clone failure while seeding leaves the watcher unseeded; the next Tick
// then treats any value as a change.
func (w *Watcher[V]) start(immediate bool) {
	capitan.Emit(w.ctx, WatcherStarted,
		KeyKind.Field(w.kind),
	)

	w.mu.Lock()
	defer w.mu.Unlock()

	curr, err := Snapshot(w.src, w.deep, w.clone)
	if err != nil {
		capitan.Emit(w.ctx, WatcherSuppressed,
			KeyKind.Field(w.kind),
			KeyError.Field(err.Error()),
		)
		return
	}
	var zero V
	w.previous, w.hasPrevious = curr, true
	if immediate {
		w.changed(curr, zero)
	}
}

// Tick resolves a new snapshot and delivers it when it differs from the
// previous one. Clone failures are returned; getter panics propagate.
// Tick on a stopped watcher does nothing.
func (w *Watcher[V]) Tick() error {
	if w.stopped.Load() {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	curr, err := Snapshot(w.src, w.deep, w.clone)
	if err != nil {
		return err
	}
	if w.hasPrevious && w.equal(curr, w.previous) {
		return nil
	}
	prev := w.previous
	w.previous, w.hasPrevious = curr, true
	w.changed(curr, prev)
	return nil
}

// changed applies the gate and hands the delivery to the filter. mu is held.
func (w *Watcher[V]) changed(curr, prev V) {
	if w.gate != nil && !w.gate(curr, prev) {
		return
	}
	run := func() { w.deliver(curr, prev) }
	if w.filter != nil {
		w.filter(run)
		return
	}
	run()
}

// deliver runs the pending cleanup and then the callback.
func (w *Watcher[V]) deliver(curr, prev V) {
	w.dmu.Lock()
	defer w.dmu.Unlock()

	if w.stopped.Load() {
		return
	}
	if fn := w.cleanup.Swap(nil); fn != nil {
		(*fn)()
	}
	w.cb(curr, prev, w.onCleanup)
	w.hasFired.Store(true)
	if w.delivered != nil {
		w.delivered()
	}
}

func (w *Watcher[V]) onCleanup(fn func()) {
	if fn == nil {
		w.cleanup.Store(nil)
		return
	}
	w.cleanup.Store(&fn)
}

// resync replaces previous with the current snapshot without delivering.
func (w *Watcher[V]) resync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	curr, err := Snapshot(w.src, w.deep, w.clone)
	if err != nil {
		return err
	}
	w.previous, w.hasPrevious = curr, true
	return nil
}

// suppressed reports a tracked-but-undelivered change.
func (w *Watcher[V]) suppressed(reason string) {
	capitan.Emit(w.ctx, WatcherSuppressed,
		KeyKind.Field(w.kind),
		KeyReason.Field(reason),
	)
}

// Previous returns the last tracked snapshot and whether one exists.
func (w *Watcher[V]) Previous() (V, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.previous, w.hasPrevious
}

// HasFired reports whether the callback has been delivered at least once.
func (w *Watcher[V]) HasFired() bool {
	return w.hasFired.Load()
}

// Stopped reports whether Stop has been called.
func (w *Watcher[V]) Stopped() bool {
	return w.stopped.Load()
}

// Stop runs the last registered cleanup and stops observing. It is safe to
// call from inside the callback and more than once.
func (w *Watcher[V]) Stop() {
	if !w.stopped.CompareAndSwap(false, true) {
		return
	}
	if fn := w.cleanup.Swap(nil); fn != nil {
		(*fn)()
	}
	capitan.Emit(w.ctx, WatcherStopped,
		KeyKind.Field(w.kind),
	)
}
