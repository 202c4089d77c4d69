package delta

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration between a trigger and the
// round of ticks it causes.
const DefaultDebounce = 10 * time.Millisecond

// Pump drives a set of targets from a Scheduler. Every trigger, after
// debouncing, ticks each target once, in order. Targets must not be ticked by
// anyone else while the Pump runs.
type Pump struct {
	scheduler Scheduler
	targets   []Tickable
	debounce  time.Duration
	syncMode  bool
	clock     clockz.Clock
	metrics   MetricsProvider
	onStop    func(State)

	state        atomic.Int32
	succeeded    atomic.Bool
	lastError    atomic.Pointer[error]
	errorHistory *ring[error]

	mu      sync.Mutex
	started bool

	// For sync mode: channel to receive triggers
	triggers <-chan struct{}
}

// NewPump creates a Pump ticking targets whenever scheduler triggers.
// Instance configuration uses chainable methods before calling Start().
//
// Example:
//
//	w := delta.Watch(ctx, delta.Getter(readConfig), onConfig, delta.Deep())
//	pump := delta.NewPump(delta.NewFileScheduler("app.yaml"), w).
//	    Debounce(200 * time.Millisecond)
//	if err := pump.Start(ctx); err != nil {
//	    log.Printf("initial evaluation failed: %v", err)
//	}
func NewPump(scheduler Scheduler, targets ...Tickable) *Pump {
	if scheduler == nil {
		invalid("pump requires a scheduler")
	}
	for i, t := range targets {
		if t == nil {
			invalid("pump target %d is nil", i)
		}
	}
	p := &Pump{
		scheduler:    scheduler,
		targets:      targets,
		debounce:     DefaultDebounce,
		clock:        clockz.RealClock,
		errorHistory: newRing[error](0),
	}
	p.state.Store(int32(StateIdle))
	return p
}

// Debounce sets how long the Pump waits after a trigger for further triggers
// before ticking. Triggers inside the window coalesce into one round.
// Default: 10ms. Must be called before Start().
func (p *Pump) Debounce(d time.Duration) *Pump {
	p.debounce = d
	return p
}

// SyncMode enables synchronous processing for testing.
// In sync mode, triggers are only processed by Process, without debouncing
// or goroutines. Must be called before Start().
func (p *Pump) SyncMode() *Pump {
	p.syncMode = true
	return p
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic debounce testing.
// Must be called before Start().
func (p *Pump) Clock(clock clockz.Clock) *Pump {
	p.clock = clock
	return p
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (p *Pump) Metrics(provider MetricsProvider) *Pump {
	p.metrics = provider
	return p
}

// OnStop sets a callback invoked with the final state when the Pump stops.
// Must be called before Start().
func (p *Pump) OnStop(fn func(State)) *Pump {
	p.onStop = fn
	return p
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (p *Pump) ErrorHistorySize(n int) *Pump {
	p.errorHistory = newRing[error](n)
	return p
}

// State returns the current state of the Pump.
func (p *Pump) State() State {
	return State(p.state.Load())
}

// LastError returns the last round's error, or nil if it succeeded.
func (p *Pump) LastError() error {
	ptr := p.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent error history, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (p *Pump) ErrorHistory() []error {
	return p.errorHistory.snapshot()
}

// Start ticks every target once, then keeps ticking them on each scheduler
// trigger until ctx is canceled or the scheduler closes. The initial round
// runs before Start returns and its error, if any, is returned; the Pump
// keeps running regardless.
//
// In sync mode, Start only runs the initial round. Use Process() to handle
// subsequent triggers.
//
// Start can only be called once. Subsequent calls return an error.
func (p *Pump) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("pump already started")
	}
	p.started = true
	p.mu.Unlock()

	if err := validatePump(p); err != nil {
		return err
	}

	capitan.Emit(ctx, PumpStarted,
		KeyDebounce.Field(p.debounce),
		KeyTargets.Field(len(p.targets)),
	)

	triggers, err := p.scheduler.Schedule(ctx)
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	initialErr := p.round(ctx)

	if p.syncMode {
		p.triggers = triggers
		return initialErr
	}

	go p.run(ctx, triggers)

	return initialErr
}

// Process handles the next pending trigger, if any. It is only available in
// sync mode and is used for deterministic testing. Returns false if no
// trigger is pending or the scheduler closed.
func (p *Pump) Process(ctx context.Context) bool {
	if !p.syncMode {
		return false
	}

	select {
	case _, ok := <-p.triggers:
		if !ok {
			return false
		}
		p.received(ctx)
		_ = p.round(ctx) //nolint:errcheck // Errors stored via setError
		return true
	default:
		return false
	}
}

// round ticks every target once and records the outcome.
func (p *Pump) round(ctx context.Context) error {
	start := p.clock.Now()
	oldState := p.State()

	var errs []error
	for i, t := range p.targets {
		if err := t.Tick(); err != nil {
			capitan.Emit(ctx, PumpTickFailed,
				KeyError.Field(err.Error()),
			)
			errs = append(errs, fmt.Errorf("target %d: %w", i, err))
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		p.setError(err)
		p.transitionState(ctx, oldState, p.failureState())
		if p.metrics != nil {
			p.metrics.OnRoundFailure(len(errs), p.clock.Since(start))
		}
		return err
	}

	p.succeeded.Store(true)
	p.lastError.Store(nil)
	p.errorHistory.reset()
	p.transitionState(ctx, oldState, StateHealthy)
	if p.metrics != nil {
		p.metrics.OnRoundSuccess(p.clock.Since(start))
	}
	return nil
}

func (p *Pump) received(ctx context.Context) {
	capitan.Emit(ctx, PumpTriggerReceived)
	if p.metrics != nil {
		p.metrics.OnTriggerReceived()
	}
}

// failureState returns StateFailing until a round has succeeded, then
// StateDegraded.
func (p *Pump) failureState() State {
	if p.succeeded.Load() {
		return StateDegraded
	}
	return StateFailing
}

// transitionState updates the state and emits a state change event if changed.
func (p *Pump) transitionState(ctx context.Context, oldState, newState State) {
	if oldState == newState {
		return
	}
	p.state.Store(int32(newState))
	capitan.Emit(ctx, PumpStateChanged,
		KeyOldState.Field(oldState.String()),
		KeyNewState.Field(newState.String()),
	)
	if p.metrics != nil {
		p.metrics.OnStateChange(oldState, newState)
	}
}

// setError stores an error atomically and adds it to the error history.
func (p *Pump) setError(err error) {
	e := err
	p.lastError.Store(&e)
	p.errorHistory.push(err)
}

// run handles triggers with debouncing until ctx is done or triggers closes.
func (p *Pump) run(ctx context.Context, triggers <-chan struct{}) {
	defer func() {
		// Detached so the stop transition is still observable after cancel.
		stopCtx := context.WithoutCancel(ctx)
		p.transitionState(stopCtx, p.State(), StateStopped)
		capitan.Emit(stopCtx, PumpStopped,
			KeyState.Field(StateStopped.String()),
		)
		if p.onStop != nil {
			p.onStop(StateStopped)
		}
	}()

	var (
		timer   clockz.Timer
		pending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case _, ok := <-triggers:
			if !ok {
				if pending {
					_ = p.round(ctx) //nolint:errcheck // Errors stored via setError
				}
				return
			}

			p.received(ctx)
			pending = true

			if timer == nil {
				timer = p.clock.NewTimer(p.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(p.debounce)
			}

		case <-timerC:
			if pending {
				_ = p.round(ctx) //nolint:errcheck // Errors stored via setError
				pending = false
			}
		}
	}
}

// pumpConfig mirrors the Pump fields checked before Start.
type pumpConfig struct {
	Debounce time.Duration `validate:"min=0"`
	Clock    clockz.Clock  `validate:"required"`
}

func validatePump(p *Pump) error {
	if err := validate.Struct(pumpConfig{Debounce: p.debounce, Clock: p.clock}); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
