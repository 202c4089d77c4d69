package delta

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key pump events.
type MetricsProvider interface {
	// OnStateChange is called when the pump transitions between states.
	OnStateChange(from, to State)

	// OnRoundSuccess is called when every target ticked without error.
	// Duration is the time taken by the whole round.
	OnRoundSuccess(duration time.Duration)

	// OnRoundFailure is called when at least one target failed.
	// Failed is the number of targets that returned an error.
	OnRoundFailure(failed int, duration time.Duration)

	// OnTriggerReceived is called when the scheduler delivers a trigger.
	OnTriggerReceived()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)              {}
func (NoOpMetricsProvider) OnRoundSuccess(_ time.Duration)        {}
func (NoOpMetricsProvider) OnRoundFailure(_ int, _ time.Duration) {}
func (NoOpMetricsProvider) OnTriggerReceived()                    {}
