package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MapClassifierError maps raw provider SDK errors into the Denrei error
// taxonomy. Credential problems are the only recoverable-by-waiting class;
// everything transient is retried with a bounded budget by the caller.
func MapClassifierError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timeout: %w", ErrClassifierTransient)
	}

	// Already mapped
	if errors.Is(err, ErrClassifierUnavailable) || errors.Is(err, ErrClassifierTransient) {
		return err
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "api key"),
		strings.Contains(errStr, "credential"),
		strings.Contains(errStr, "unauthorized"),
		strings.Contains(errStr, "401"),
		strings.Contains(errStr, "authentication"),
		strings.Contains(errStr, "no provider configured"):
		return fmt.Errorf("credentials unavailable: %w", ErrClassifierUnavailable)

	case strings.Contains(errStr, "rate limit"),
		strings.Contains(errStr, "quota"),
		strings.Contains(errStr, "too many requests"),
		strings.Contains(errStr, "429"):
		return fmt.Errorf("rate limited: %w", ErrClassifierTransient)

	case strings.Contains(errStr, "timeout"),
		strings.Contains(errStr, "deadline exceeded"),
		strings.Contains(errStr, "network"),
		strings.Contains(errStr, "connection"),
		strings.Contains(errStr, "unreachable"),
		strings.Contains(errStr, "overloaded"),
		strings.Contains(errStr, "503"),
		strings.Contains(errStr, "500"):
		return fmt.Errorf("provider error: %w", ErrClassifierTransient)

	case strings.Contains(errStr, "malformed"),
		strings.Contains(errStr, "invalid json"),
		strings.Contains(errStr, "no choices"),
		strings.Contains(errStr, "empty response"):
		// Structural validation failures retry like provider errors
		return fmt.Errorf("malformed response: %w", ErrClassifierTransient)

	default:
		return fmt.Errorf("provider error: %w", ErrClassifierTransient)
	}
}

// IsRetryable reports whether an error should trigger an immediate bounded retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrClassifierTransient) || errors.Is(err, ErrConcurrentModification)
}

// Category returns the taxonomy name for an error, for logs and summaries.
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrValidation):
		return "ErrValidation"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrInvalidStatus):
		return "ErrInvalidStatus"
	case errors.Is(err, ErrConflict):
		return "ErrConflict"
	case errors.Is(err, ErrConcurrentModification):
		return "ErrConcurrentModification"
	case errors.Is(err, ErrClassifierUnavailable):
		return "ErrClassifierUnavailable"
	case errors.Is(err, ErrClassifierTransient):
		return "ErrClassifierTransient"
	case errors.Is(err, ErrPersistence):
		return "ErrPersistence"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

// Wrap wraps an error with context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Validation wraps a message as a validation error
func Validation(message string) error {
	return fmt.Errorf("%s: %w", message, ErrValidation)
}

// NotFound wraps a message as not found
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// InvalidStatus wraps a message as invalid status
func InvalidStatus(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInvalidStatus)
}

// Conflict wraps a message as a conflict
func Conflict(message string) error {
	return fmt.Errorf("%s: %w", message, ErrConflict)
}

// Persistence wraps a store error
func Persistence(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %v: %w", message, err, ErrPersistence)
}

// Internal wraps a message as internal
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// IsCategory checks if error belongs to a specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}
