package delta

import "errors"

var (
	// ErrInvalidConfig wraps configuration mistakes detected at construction.
	// Constructors panic with an error wrapping it.
	ErrInvalidConfig = errors.New("delta: invalid configuration")

	// ErrSnapshot wraps clone, dump and parse failures.
	ErrSnapshot = errors.New("delta: snapshot failed")

	// ErrNothingToUndo is returned by History.Undo when no earlier entry exists.
	ErrNothingToUndo = errors.New("delta: nothing to undo")

	// ErrNothingToRedo is returned by History.Redo when no undone entry exists.
	ErrNothingToRedo = errors.New("delta: nothing to redo")

	// ErrUnknownCodec is returned by CodecFor for unrecognized file extensions.
	ErrUnknownCodec = errors.New("delta: unknown codec")

	// ErrStopped is returned by operations on a stopped history store.
	ErrStopped = errors.New("delta: stopped")
)
