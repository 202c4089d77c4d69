package delta

import (
	"context"
	"sync/atomic"
)

// Whenever creates a Watcher that delivers only truthy values (see Truthy).
// prev is the last value delivered, not the last value seen, so a
// true -> false -> true sequence passes the first true as prev. Transitions
// into falsy values are tracked silently.
//
// With Once, only the first truthy delivery happens; later changes are
// tracked and dropped. With Immediate, a truthy initial value is delivered
// at construction.
func Whenever[V any](ctx context.Context, src Source[V], cb Callback[V], opts ...Option) *Watcher[V] {
	if cb == nil {
		invalid("whenever watcher requires a callback")
	}
	cfg := newConfig(opts)

	var (
		last V
		done atomic.Bool
	)
	w := newWatcher(ctx, "whenever", src, func(curr, _ V, onCleanup func(func())) {
		prev := last
		last = curr
		cb(curr, prev, onCleanup)
	}, cfg)
	if cfg.Deep {
		w.equal = func(a, b V) bool { return EqualDates(a, b) }
	}
	w.gate = func(curr, _ V) bool {
		if !Truthy(curr) {
			return false
		}
		if cfg.Once && !done.CompareAndSwap(false, true) {
			w.suppressed("once")
			return false
		}
		return true
	}
	w.start(cfg.Immediate)
	return w
}
