package app

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every lookup miss surfaced from this package.
var ErrNotFound = errors.New("not found")

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports an action that is not allowed from the entity's current state.
type InvalidStateError struct {
	Entity string
	ID     int64
	From   string
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in state %q", e.Action, e.Entity, e.ID, e.From)
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}
