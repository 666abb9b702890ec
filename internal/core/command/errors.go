package command

import "errors"

// Every error returned by a command wraps one of these. None of them is
// retryable: a command that failed to capture must not be pushed onto an
// undo stack, and a failed restore leaves no partial entity behind.
var (
	// Precondition violations

	ErrNilEntity           = errors.New("source entity is nil")
	ErrMissingDependency   = errors.New("command dependency missing")
	ErrUndoAlreadyCaptured = errors.New("undo state already captured")
	ErrUndoNotPrecached    = errors.New("no cached pre-mutation snapshot")
	ErrNotCaptured         = errors.New("command has not captured an entity")
	ErrInvalidCommand      = errors.New("command is invalid after a failed capture")

	// Capture failures

	ErrSerialization = errors.New("unable to serialize entity")
	ErrEmptySnapshot = errors.New("snapshot is empty")
	ErrSliceInfo     = errors.New("unable to extract slice restore info")

	// Restore failures

	ErrNoSnapshot      = errors.New("no snapshot to restore")
	ErrDeserialization = errors.New("unable to deserialize entity")
	ErrReintegration   = errors.New("unable to re-integrate restored entity")
	ErrCacheRefresh    = errors.New("unable to refresh snapshot cache")
)
