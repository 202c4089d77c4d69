package delta

import "github.com/zoobzio/capitan"

// Field keys for delta events.
var (
	// KeyKind is the watcher variant: watch, pausable, bounded, filtered, array, whenever.
	KeyKind = capitan.NewStringKey("kind")

	// KeyReason explains why a change was suppressed or a dispatch ignored.
	KeyReason = capitan.NewStringKey("reason")

	// KeyCount is the number of deliveries made by a bounded watcher.
	KeyCount = capitan.NewIntKey("count")

	// KeyLength is the number of entries in a history after an operation.
	KeyLength = capitan.NewIntKey("length")

	// KeyEntry is the ID of the history entry involved in an operation.
	KeyEntry = capitan.NewStringKey("entry")

	// KeyFlush is the flush mode of a history store.
	KeyFlush = capitan.NewStringKey("flush")

	// KeySubscribers is the number of subscribers notified by a dispatch.
	KeySubscribers = capitan.NewIntKey("subscribers")

	// KeyBinding is the ID of the store binding that dispatched.
	KeyBinding = capitan.NewStringKey("binding")

	// KeyState is the current state of a Pump.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDebounce is the configured debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeyTargets is the number of targets a Pump drives.
	KeyTargets = capitan.NewIntKey("targets")
)
