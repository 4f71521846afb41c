package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a booking, destination or guide does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTerminal is returned when a booking can no longer change state.
	ErrTerminal = errors.New("booking is in a terminal state")
	// ErrInvalidTransition is returned for lifecycle moves that skip or reverse a state.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError is a user-facing reason a booking request was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
