package delta

import (
	"context"
	"sync/atomic"
)

// PausableWatcher is a Watcher whose deliveries can be suspended.
// While paused, ticks keep comparing and tracking the previous value, but
// the callback is not called. Resume does not replay missed changes.
type PausableWatcher[V any] struct {
	*Watcher[V]
	paused atomic.Bool
}

// WatchPausable creates a PausableWatcher over src.
//
// Deep comparison here does not special-case time.Time; two instants in
// different locations count as a change.
func WatchPausable[V any](ctx context.Context, src Source[V], cb Callback[V], opts ...Option) *PausableWatcher[V] {
	cfg := newConfig(opts)
	p := &PausableWatcher[V]{
		Watcher: newWatcher(ctx, "pausable", src, cb, cfg),
	}
	p.gate = func(_, _ V) bool {
		if p.paused.Load() {
			p.suppressed("paused")
			return false
		}
		return true
	}
	p.start(cfg.Immediate)
	return p
}

// Pause suspends delivery. Changes are still tracked.
func (p *PausableWatcher[V]) Pause() {
	p.paused.Store(true)
}

// Resume re-enables delivery from the next detected change on.
func (p *PausableWatcher[V]) Resume() {
	p.paused.Store(false)
}

// IsActive reports whether the watcher is delivering.
func (p *PausableWatcher[V]) IsActive() bool {
	return !p.paused.Load() && !p.Stopped()
}
