package delta

import "github.com/zoobzio/capitan"

// Watcher lifecycle signals.
var (
	// WatcherStarted is emitted when a watcher is constructed and seeded.
	WatcherStarted = capitan.NewSignal(
		"delta.watcher.started",
		"Watcher started",
	)

	// WatcherStopped is emitted when a watcher is torn down.
	WatcherStopped = capitan.NewSignal(
		"delta.watcher.stopped",
		"Watcher stopped",
	)

	// WatcherSuppressed is emitted when a detected change is tracked but not delivered.
	WatcherSuppressed = capitan.NewSignal(
		"delta.watcher.suppressed",
		"Change tracked without delivery",
	)
)

// History signals.
var (
	// HistoryCommitted is emitted when a snapshot is pushed onto the history.
	HistoryCommitted = capitan.NewSignal(
		"delta.history.committed",
		"History entry committed",
	)

	// HistoryUndone is emitted when the cell is restored to an earlier entry.
	HistoryUndone = capitan.NewSignal(
		"delta.history.undone",
		"History undo applied",
	)

	// HistoryRedone is emitted when an undone entry is restored.
	HistoryRedone = capitan.NewSignal(
		"delta.history.redone",
		"History redo applied",
	)

	// HistoryCleared is emitted when the undo and redo stacks are dropped.
	HistoryCleared = capitan.NewSignal(
		"delta.history.cleared",
		"History cleared",
	)
)

// Store signals.
var (
	// StoreDispatched is emitted after a dispatch updated the value and notified subscribers.
	StoreDispatched = capitan.NewSignal(
		"delta.store.dispatched",
		"Store value dispatched",
	)

	// StoreDispatchIgnored is emitted when a dispatch resolves to nothing and is dropped.
	StoreDispatchIgnored = capitan.NewSignal(
		"delta.store.dispatch.ignored",
		"Store dispatch ignored",
	)
)

// Pump lifecycle signals.
var (
	// PumpStarted is emitted when a Pump begins driving its targets.
	PumpStarted = capitan.NewSignal(
		"delta.pump.started",
		"Pump started",
	)

	// PumpStopped is emitted when a Pump stops driving its targets.
	PumpStopped = capitan.NewSignal(
		"delta.pump.stopped",
		"Pump stopped",
	)

	// PumpStateChanged is emitted when a Pump transitions between states.
	PumpStateChanged = capitan.NewSignal(
		"delta.pump.state.changed",
		"Pump state transition",
	)

	// PumpTriggerReceived is emitted when the scheduler delivers a trigger.
	PumpTriggerReceived = capitan.NewSignal(
		"delta.pump.trigger.received",
		"Trigger received from scheduler",
	)

	// PumpTickFailed is emitted when a target returns an error from Tick.
	PumpTickFailed = capitan.NewSignal(
		"delta.pump.tick.failed",
		"Target tick failed",
	)
)
