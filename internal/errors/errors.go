package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrValidation - malformed input to an operation, rejected before any write
	ErrValidation = errors.New("validation error")

	// ErrNotFound - referenced command/action absent or not owned by the caller
	ErrNotFound = errors.New("not found")

	// ErrInvalidStatus - operation not permitted in the current lifecycle state
	ErrInvalidStatus = errors.New("invalid status")

	// ErrConflict - a record with the same identity already exists
	ErrConflict = errors.New("conflict")

	// ErrConcurrentModification - conditional update lost a race, caller should re-read
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrClassifierUnavailable - classifier credentials missing or invalid, recoverable via retry sweep
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrClassifierTransient - transient provider failure (rate limit, timeout, malformed output)
	ErrClassifierTransient = errors.New("classifier transient error")

	// ErrPersistence - store unavailable or write failed
	ErrPersistence = errors.New("persistence error")

	// ErrInternal - internal error
	ErrInternal = errors.New("internal error")
)
