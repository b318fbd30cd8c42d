package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFlow is matched by every ValidationError.
	ErrInvalidFlow = errors.New("invalid flow")

	// ErrUniquenessViolation is matched by every ConflictError. A create that
	// would duplicate a unique key (the flow name) fails with it.
	ErrUniquenessViolation = errors.New("uniqueness violation")
)

// ValidationError reports caller input rejected before any store access.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid flow: %s: %s", e.Field, e.Message)
}

// Is reports ErrInvalidFlow so callers can test with errors.Is.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidFlow
}

// ConflictError is returned by store adapters when an insert violates a
// unique constraint. Err holds the driver error.
type ConflictError struct {
	Field string
	Value string
	Err   error
}

func (e *ConflictError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("uniqueness violation: flow with %s %q already exists", e.Field, e.Value)
	}
	return fmt.Sprintf("uniqueness violation on %s", e.Field)
}

// Is reports ErrUniquenessViolation so callers can test with errors.Is.
func (e *ConflictError) Is(target error) bool {
	return target == ErrUniquenessViolation
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// IsConflict returns true if err is, or wraps, a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUniquenessViolation)
}

// IsInvalid returns true if err is, or wraps, a validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidFlow)
}
