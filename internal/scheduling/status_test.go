package scheduling

import (
	"errors"
	"strings"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusScheduled, StatusCancelled, StatusCompleted}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusScheduled}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusScheduled, StatusCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			got, err := Transition(from, to)
			if allowed[[2]Status{from, to}] {
				if err != nil || got != to {
					t.Errorf("%s -> %s: got (%s, %v), want success", from, to, got, err)
				}
				continue
			}
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Errorf("%s -> %s: expected InvalidTransitionError, got %v", from, to, err)
				continue
			}
			if ite.From != from || ite.To != to {
				t.Errorf("error names %s -> %s, want %s -> %s", ite.From, ite.To, from, to)
			}
		}
	}
}

func TestTransition_UnknownTarget(t *testing.T) {
	_, err := Transition(StatusPending, Status("archived"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInitialStatus(t *testing.T) {
	cal := testCalendar()
	if got := InitialStatus(cal); got != StatusScheduled {
		t.Fatalf("got %s, want scheduled", got)
	}
	cal.RequireConfirmation = true
	if got := InitialStatus(cal); got != StatusPending {
		t.Fatalf("got %s, want pending", got)
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusPending.Blocking() || !StatusScheduled.Blocking() {
		t.Fatal("pending and scheduled must block")
	}
	if StatusCancelled.Blocking() || StatusCompleted.Blocking() {
		t.Fatal("cancelled and completed must not block")
	}
	if !StatusCancelled.Terminal() || !StatusCompleted.Terminal() || StatusPending.Terminal() {
		t.Fatal("terminal states are cancelled and completed")
	}
	if _, err := ParseStatus("scheduled"); err != nil {
		t.Fatalf("ParseStatus: %v", err)
	}
	if _, err := ParseStatus("confirmed"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestTransition_FinalStatusMessage(t *testing.T) {
	_, err := Transition(StatusCancelled, StatusScheduled)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if !strings.HasSuffix(err.Error(), "cancelled is final") {
		t.Errorf("message %q does not name the final status", err)
	}
	_, err = Transition(StatusScheduled, StatusPending)
	if strings.Contains(err.Error(), "final") {
		t.Errorf("scheduled reported as final: %q", err)
	}
}
