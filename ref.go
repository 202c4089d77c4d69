package delta

import "sync"

// Cell is a single mutable value that a History can track and restore.
type Cell[V any] interface {
	Get() V
	Set(V)
}

// Ref is a minimal mutex-guarded Cell.
type Ref[V any] struct {
	mu sync.RWMutex
	v  V
}

// NewRef creates a Ref holding v.
func NewRef[V any](v V) *Ref[V] {
	return &Ref[V]{v: v}
}

// Get returns the current value.
func (r *Ref[V]) Get() V {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v
}

// Set replaces the current value.
func (r *Ref[V]) Set(v V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.v = v
}

// Source returns a getter Source reading the Ref.
func (r *Ref[V]) Source() Source[V] {
	return Getter(r.Get)
}

var _ Cell[int] = (*Ref[int])(nil)
