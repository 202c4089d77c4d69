package delta

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

// Scheduler produces scheduling triggers. Each value received from the
// returned channel asks the driven targets to re-evaluate once. The channel
// is closed when the context is canceled or the source ends.
type Scheduler interface {
	Schedule(ctx context.Context) (<-chan struct{}, error)
}

// ChannelScheduler wraps an existing trigger channel as a Scheduler.
// Useful for testing and for hosts that already own an event loop.
type ChannelScheduler struct {
	ch   <-chan struct{}
	sync bool
}

// NewChannelScheduler creates a ChannelScheduler that forwards triggers from
// ch through an internal goroutine.
func NewChannelScheduler(ch <-chan struct{}) *ChannelScheduler {
	return &ChannelScheduler{ch: ch}
}

// NewSyncChannelScheduler creates a ChannelScheduler that returns ch directly.
// Use with Pump.SyncMode for deterministic testing.
func NewSyncChannelScheduler(ch <-chan struct{}) *ChannelScheduler {
	return &ChannelScheduler{ch: ch, sync: true}
}

// Schedule returns a channel that emits the wrapped channel's triggers.
func (s *ChannelScheduler) Schedule(ctx context.Context) (<-chan struct{}, error) {
	if s.sync {
		return s.ch, nil
	}

	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-s.ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// IntervalScheduler triggers once per interval on its clock.
type IntervalScheduler struct {
	interval time.Duration
	clock    clockz.Clock
}

// NewIntervalScheduler creates an IntervalScheduler. A nil clock uses the
// real clock. A non-positive interval panics with ErrInvalidConfig.
func NewIntervalScheduler(clock clockz.Clock, interval time.Duration) *IntervalScheduler {
	if interval <= 0 {
		invalid("interval must be positive, got %v", interval)
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return &IntervalScheduler{interval: interval, clock: clock}
}

// Schedule starts the interval and returns its trigger channel. A trigger
// that is not received before the next interval is dropped.
func (s *IntervalScheduler) Schedule(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{})
	timer := s.clock.NewTimer(s.interval)

	go func() {
		defer close(out)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C():
			}

			timer.Reset(s.interval)
			select {
			case out <- struct{}{}:
			case <-timer.C():
				timer.Reset(s.interval)
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
