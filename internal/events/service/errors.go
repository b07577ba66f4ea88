package events

import "fmt"

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

var (
	ErrEventNotFound    = &NotFoundError{Resource: "Event"}
	ErrAttendeeNotFound = &NotFoundError{Resource: "Attendee"}
)

// ConflictError is a request that is well formed but clashes with stored state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

var (
	ErrEventFull         = &ConflictError{Message: "Event is full"}
	ErrAlreadyRegistered = &ConflictError{Message: "Email already registered for this event"}
	ErrCapacityBelowSold = &ConflictError{Message: "Capacity cannot be less than tickets sold"}
)

// ImportError is returned when no CSV row could be imported.
type ImportError struct {
	Message string
	Details []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s (%d row errors)", e.Message, len(e.Details))
}
