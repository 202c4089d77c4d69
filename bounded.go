package delta

import (
	"context"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// BoundedWatcher delivers at most a fixed number of changes. After the
// limit is reached, changes are still tracked but never delivered.
type BoundedWatcher[V any] struct {
	*Watcher[V]
	limit int
	count atomic.Int64
}

// WatchAtMost creates a BoundedWatcher that delivers at most count times.
// A count below 1 panics with ErrInvalidConfig.
//
// An Immediate delivery counts toward the limit.
func WatchAtMost[V any](ctx context.Context, src Source[V], count int, cb Callback[V], opts ...Option) *BoundedWatcher[V] {
	if count < 1 {
		invalid("at-most watcher count must be at least 1, got %d", count)
	}
	cfg := newConfig(opts)
	b := &BoundedWatcher[V]{
		Watcher: newWatcher(ctx, "bounded", src, cb, cfg),
		limit:   count,
	}
	if cfg.Deep {
		b.equal = func(x, y V) bool { return EqualDates(x, y) }
	}
	b.gate = func(_, _ V) bool {
		if b.count.Load() >= int64(b.limit) {
			capitan.Emit(b.ctx, WatcherSuppressed,
				KeyKind.Field(b.kind),
				KeyReason.Field("exhausted"),
				KeyCount.Field(b.Count()),
			)
			return false
		}
		return true
	}
	b.delivered = func() {
		b.count.Add(1)
	}
	b.start(cfg.Immediate)
	return b
}

// Count returns the number of deliveries so far.
func (b *BoundedWatcher[V]) Count() int {
	return int(b.count.Load())
}

// Limit returns the maximum number of deliveries.
func (b *BoundedWatcher[V]) Limit() int {
	return b.limit
}
