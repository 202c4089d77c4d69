package delta

// State represents the current state of a Pump.
type State int32

const (
	// StateIdle indicates the Pump has not completed a round of ticks yet.
	StateIdle State = iota

	// StateHealthy indicates every target ticked without error in the last round.
	StateHealthy

	// StateDegraded indicates the last round had failures after an earlier
	// round succeeded.
	StateDegraded

	// StateFailing indicates no round has ever succeeded. The Pump keeps
	// driving its targets.
	StateFailing

	// StateStopped indicates the scheduler closed or the context was canceled.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateFailing:
		return "failing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
