package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing record. Context sentinels wrap it.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks rejected input.
	ErrValidation = errors.New("validation failed")
)

// ValidationError carries a human-readable reason for rejected input.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a validation error.
func Invalid(msg string) error {
	return &ValidationError{msg: msg}
}

// Invalidf builds a formatted validation error.
func Invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// NotFound builds a context-specific not-found sentinel.
func NotFound(context string) error {
	return fmt.Errorf("%s: %w", context, ErrNotFound)
}
