package delta

import "sync"

// ring keeps the most recent values up to a fixed size. A nil ring is
// disabled: push and reset do nothing and snapshot returns nil.
type ring[T any] struct {
	mu   sync.RWMutex
	buf  []T
	next int
	full bool
}

// newRing returns a ring holding up to size values, or nil when size <= 0.
func newRing[T any](size int) *ring[T] {
	if size <= 0 {
		return nil
	}
	return &ring[T]{buf: make([]T, size)}
}

func (r *ring[T]) push(v T) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *ring[T]) reset() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.buf)
	r.next = 0
	r.full = false
}

// snapshot returns the retained values, oldest first.
func (r *ring[T]) snapshot() []T {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.full {
		if r.next == 0 {
			return nil
		}
		return append([]T(nil), r.buf[:r.next]...)
	}
	out := make([]T, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
