package delta

import (
	"context"
	"slices"
)

// ArrayCallback receives the current and previous lists together with the
// elements that joined and left.
type ArrayCallback[E comparable] func(curr, prev, added, removed []E, onCleanup func(func()))

// WatchArray creates a Watcher over a list that delivers only membership
// changes. Elements are matched by ==, ignoring position: reordering the
// same elements is not a change. added and removed keep the order of the
// list they were taken from.
//
// Each snapshot copies the list, so in-place mutation of the live slice is
// detected on the next Tick. With Immediate, the first delivery reports
// every element as added.
func WatchArray[E comparable](ctx context.Context, src Source[[]E], cb ArrayCallback[E], opts ...Option) *Watcher[[]E] {
	if cb == nil {
		invalid("array watcher requires a callback")
	}
	cfg := newConfig(opts)
	w := newWatcher(ctx, "array", src, func(curr, prev []E, onCleanup func(func())) {
		added, removed := Diff(prev, curr)
		cb(curr, prev, added, removed, onCleanup)
	}, cfg)
	w.deep = true
	w.clone = func(list []E) ([]E, error) {
		return slices.Clone(list), nil
	}
	w.equal = func(a, b []E) bool {
		added, removed := Diff(a, b)
		return len(added) == 0 && len(removed) == 0
	}
	w.start(cfg.Immediate)
	return w
}

// Diff returns the elements of curr missing from prev (added) and the
// elements of prev missing from curr (removed), by set membership.
func Diff[E comparable](prev, curr []E) (added, removed []E) {
	before := make(map[E]struct{}, len(prev))
	for _, e := range prev {
		before[e] = struct{}{}
	}
	after := make(map[E]struct{}, len(curr))
	for _, e := range curr {
		after[e] = struct{}{}
	}
	for _, e := range curr {
		if _, ok := before[e]; !ok {
			added = append(added, e)
		}
	}
	for _, e := range prev {
		if _, ok := after[e]; !ok {
			removed = append(removed, e)
		}
	}
	return added, removed
}
