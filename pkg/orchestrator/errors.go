package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrMissingInput = errors.New("input or input data is required")
	ErrMissingToken = errors.New("authorization token is required")
	ErrNoRoles      = errors.New("user has no roles")

	// ErrForeignSession is returned when the context id belongs to another user.
	ErrForeignSession = errors.New("session belongs to another user")
)

// ValidationError rejects a turn before any status update is produced.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid turn %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error rejected the turn request itself.
func IsValidationError(err error) bool {
	var validationErr *ValidationError

	return errors.As(err, &validationErr)
}
