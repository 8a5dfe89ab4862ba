package loan

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("loan not found")
	ErrInvalidTransition = errors.New("invalid loan transition")
	ErrConflict          = errors.New("loan already exists")
	ErrStore             = errors.New("store error")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError names the guard that rejected a transition.
type TransitionError struct {
	LoanID string
	From   Status
	To     Status
	Guard  string
}

func (e *TransitionError) Error() string { return e.Guard }

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StoreError wraps a persistence failure so callers can match ErrStore
// without losing the driver error.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}
