package delta

import (
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 1s")
		}
		time.Sleep(time.Millisecond)
	}
}

// countingTarget is a Tickable that counts ticks and optionally fails.
type countingTarget struct {
	ticks atomic.Int32
	err   atomic.Pointer[error]
}

func (c *countingTarget) Tick() error {
	c.ticks.Add(1)
	if e := c.err.Load(); e != nil {
		return *e
	}
	return nil
}

func (c *countingTarget) fail(err error) {
	if err == nil {
		c.err.Store(nil)
		return
	}
	c.err.Store(&err)
}

// recorder collects watcher deliveries.
type recorder[V any] struct {
	calls []call[V]
}

type call[V any] struct {
	curr, prev V
}

func (r *recorder[V]) cb(curr, prev V, _ func(func())) {
	r.calls = append(r.calls, call[V]{curr: curr, prev: prev})
}
