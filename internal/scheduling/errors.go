package scheduling

import (
	"errors"
	"fmt"
)

// Error kinds. Every typed error below unwraps to exactly one of these so
// callers can branch with errors.Is without knowing the concrete type.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrStorage           = errors.New("storage error")
)

// Specific rule violations reported by the conflict checker and the orchestrator.
var (
	ErrSlotTaken           = errors.New("slot no longer available")
	ErrInsideNotice        = errors.New("inside minimum notice window")
	ErrStartInPast         = errors.New("start is in the past")
	ErrOutsideWindow       = errors.New("outside booking window")
	ErrOutsideAvailability = errors.New("outside calendar availability")
)

// ValidationError reports malformed rule, calendar or booking input.
type ValidationError struct {
	Field  string
	Reason string
	// Rule is the specific violation, if any (e.g. ErrInsideNotice).
	Rule error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	if e.Rule == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Rule}
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports an overlap with an existing booking.
type ConflictError struct {
	Reason error
	// BookingID is the blocking booking when known.
	BookingID string
}

func (e *ConflictError) Error() string {
	reason := ErrSlotTaken
	if e.Reason != nil {
		reason = e.Reason
	}
	if e.BookingID == "" {
		return "conflict: " + reason.Error()
	}
	return fmt.Sprintf("conflict: %s (booking %s)", reason, e.BookingID)
}

func (e *ConflictError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrConflict, ErrSlotTaken}
	}
	return []error{ErrConflict, e.Reason}
}

// InvalidTransitionError names the attempted source and target status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	if e.From.Terminal() {
		return fmt.Sprintf("invalid status transition %s -> %s: %s is final", e.From, e.To, e.From)
	}
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFoundError is returned for absent resources and for resources outside
// the caller's tenant. Callers cannot tell the two apart.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StorageError wraps a persistence failure that has no better classification.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }
