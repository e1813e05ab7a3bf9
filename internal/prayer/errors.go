package prayer

import (
	"errors"
	"fmt"
)

// Business-rule and lookup failures are returned as typed sentinel values so
// the HTTP layer can translate them without string matching.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrOutOfRange            = errors.New("date precedes account creation")
	ErrAlreadyCompleted      = errors.New("prayer already completed")
	ErrTooEarly              = errors.New("prayer time has not started yet")
	ErrNotEligibleForQada    = errors.New("prayer is not eligible for qada")
	ErrBeforeAccountCreation = errors.New("cannot mark qada before account creation")
	ErrProviderUnavailable   = errors.New("prayer times provider unavailable")
	ErrPersistence           = errors.New("persistence failure")
)

// invalid wraps a detail message in ErrInvalidInput.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// persistence wraps a storage error in ErrPersistence.
func persistence(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
