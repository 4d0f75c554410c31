package scheduling

import (
	"errors"
	"testing"
	"time"
)

func TestEnsureSlotIsAvailable(t *testing.T) {
	now := mustTime(t, "2026-10-18T08:00:00Z")
	existing := []Booking{
		{ID: "scheduled", Start: mustTime(t, monday+"T10:00:00Z"), End: mustTime(t, monday+"T10:30:00Z"), Status: StatusScheduled},
		{ID: "pending", Start: mustTime(t, monday+"T14:00:00Z"), End: mustTime(t, monday+"T14:30:00Z"), Status: StatusPending},
		{ID: "cancelled", Start: mustTime(t, monday+"T12:00:00Z"), End: mustTime(t, monday+"T12:30:00Z"), Status: StatusCancelled},
		{ID: "completed", Start: mustTime(t, monday+"T13:00:00Z"), End: mustTime(t, monday+"T13:30:00Z"), Status: StatusCompleted},
	}

	tests := []struct {
		name       string
		start, end string
		buffers    [2]int
		notice     int
		want       error
	}{
		{"free", monday + "T09:00:00Z", monday + "T09:30:00Z", [2]int{}, 0, nil},
		{"exact match", monday + "T10:00:00Z", monday + "T10:30:00Z", [2]int{}, 0, ErrSlotTaken},
		{"partial overlap", monday + "T10:15:00Z", monday + "T10:45:00Z", [2]int{}, 0, ErrSlotTaken},
		{"touching end", monday + "T10:30:00Z", monday + "T11:00:00Z", [2]int{}, 0, nil},
		{"inside buffer after", monday + "T10:30:00Z", monday + "T11:00:00Z", [2]int{0, 10}, 0, ErrSlotTaken},
		{"inside buffer before", monday + "T09:30:00Z", monday + "T10:00:00Z", [2]int{15, 0}, 0, ErrSlotTaken},
		{"pending blocks", monday + "T14:00:00Z", monday + "T14:30:00Z", [2]int{}, 0, ErrSlotTaken},
		{"cancelled never blocks", monday + "T12:00:00Z", monday + "T12:30:00Z", [2]int{}, 0, nil},
		{"completed never blocks", monday + "T13:00:00Z", monday + "T13:30:00Z", [2]int{}, 0, nil},
		{"in the past", "2026-10-17T09:00:00Z", "2026-10-17T09:30:00Z", [2]int{}, 0, ErrStartInPast},
		{"inside notice", "2026-10-18T08:30:00Z", "2026-10-18T09:00:00Z", [2]int{}, 60, ErrInsideNotice},
		{"end before start", monday + "T09:30:00Z", monday + "T09:00:00Z", [2]int{}, 0, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := testCalendar()
			cal.BufferBeforeMinutes, cal.BufferAfterMinutes = tt.buffers[0], tt.buffers[1]
			cal.MinNoticeMinutes = tt.notice

			err := EnsureSlotIsAvailable(cal, mustTime(t, tt.start), mustTime(t, tt.end), existing, now)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEnsureSlotIsAvailable_ErrorKinds(t *testing.T) {
	now := mustTime(t, "2026-10-18T08:00:00Z")
	cal := testCalendar()
	cal.MinNoticeMinutes = 60
	existing := []Booking{{ID: "b", Start: mustTime(t, monday+"T10:00:00Z"), End: mustTime(t, monday+"T10:30:00Z"), Status: StatusScheduled}}

	err := EnsureSlotIsAvailable(cal, mustTime(t, monday+"T10:00:00Z"), mustTime(t, monday+"T10:30:00Z"), existing, now)
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.BookingID != "b" {
		t.Fatalf("expected ConflictError naming booking b, got %v", err)
	}
	if errors.Is(err, ErrValidation) {
		t.Fatal("conflict must not be reported as validation")
	}

	err = EnsureSlotIsAvailable(cal, now.Add(30*time.Minute), now.Add(60*time.Minute), nil, now)
	var invalid *ValidationError
	if !errors.As(err, &invalid) || !errors.Is(err, ErrInsideNotice) {
		t.Fatalf("expected notice ValidationError, got %v", err)
	}
	if errors.Is(err, ErrConflict) {
		t.Fatal("notice violation must not be reported as conflict")
	}
}

func TestEnsureBookable(t *testing.T) {
	now := mustTime(t, "2026-10-18T08:00:00Z")
	cal := testCalendar()
	cal.BookingWindowDays = 14
	rules := []AvailabilityRule{WeeklyRule(time.Monday, 9*60, 17*60)}

	if err := EnsureBookable(cal, rules, mustTime(t, monday+"T09:00:00Z"), mustTime(t, monday+"T09:30:00Z"), nil, now); err != nil {
		t.Fatalf("expected bookable, got %v", err)
	}
	err := EnsureBookable(cal, rules, mustTime(t, monday+"T07:00:00Z"), mustTime(t, monday+"T07:30:00Z"), nil, now)
	if !errors.Is(err, ErrOutsideAvailability) {
		t.Fatalf("expected ErrOutsideAvailability, got %v", err)
	}
	err = EnsureBookable(cal, rules, mustTime(t, "2026-11-16T09:00:00Z"), mustTime(t, "2026-11-16T09:30:00Z"), nil, now)
	if !errors.Is(err, ErrOutsideWindow) {
		t.Fatalf("expected ErrOutsideWindow, got %v", err)
	}
}

func TestEnsureBookable_WindowEdges(t *testing.T) {
	now := mustTime(t, "2026-10-18T12:00:00Z")
	cal := testCalendar()
	cal.BookingWindowDays = 1
	rules := []AvailabilityRule{WeeklyRule(time.Monday, 0, MinutesPerDay)}

	tests := []struct {
		name       string
		start, end string
		wantErr    bool
	}{
		{"ends at limit", "T11:30:00Z", "T12:00:00Z", false},
		{"straddles limit", "T11:45:00Z", "T12:15:00Z", true},
		{"starts at limit", "T12:00:00Z", "T12:30:00Z", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureBookable(cal, rules, mustTime(t, monday+tt.start), mustTime(t, monday+tt.end), nil, now)
			if tt.wantErr && !errors.Is(err, ErrOutsideWindow) {
				t.Fatalf("expected ErrOutsideWindow, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected bookable, got %v", err)
			}
		})
	}

	w, err := ComputeAvailability(cal, rules, nil, Query{Now: now})
	if err != nil {
		t.Fatal(err)
	}
	last := w.Days[len(w.Days)-1].Slots
	if end := last[len(last)-1].End; end.After(mustTime(t, monday+"T12:00:00Z")) {
		t.Errorf("last offered slot ends %s, past the window", end)
	}
}
