package scheduling

import "fmt"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// transitions is the only place allowed status changes are defined.
var transitions = map[Status][]Status{
	StatusPending:   {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusCancelled},
	StatusCancelled: nil,
	StatusCompleted: nil,
}

// ParseStatus rejects anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", Invalid("status", fmt.Sprintf("unknown status %q", s))
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Blocking reports whether a booking in this status occupies its interval.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusScheduled
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// InitialStatus is pending when the host must confirm, scheduled otherwise.
func InitialStatus(cal *Calendar) Status {
	if cal.RequireConfirmation {
		return StatusPending
	}
	return StatusScheduled
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns the target status.
func Transition(from, to Status) (Status, error) {
	if !to.Valid() {
		return from, Invalid("status", fmt.Sprintf("unknown status %q", to))
	}
	if !CanTransition(from, to) {
		return from, &InvalidTransitionError{From: from, To: to}
	}
	return to, nil
}
