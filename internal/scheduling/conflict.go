package scheduling

import "time"

// EnsureSlotIsAvailable decides whether [start, end) may be booked on cal
// given the calendar's existing bookings. It reports past or short-notice
// starts as validation errors and overlaps with a buffered blocking booking
// as a conflict.
func EnsureSlotIsAvailable(cal *Calendar, start, end time.Time, existing []Booking, now time.Time) error {
	if start.IsZero() {
		return Invalid("start", "required")
	}
	if end.IsZero() {
		return Invalid("end", "required")
	}
	if !start.Before(end) {
		return Invalid("end", "must be after start")
	}
	if start.Before(now) {
		return &ValidationError{Field: "start", Reason: ErrStartInPast.Error(), Rule: ErrStartInPast}
	}
	if start.Before(now.Add(cal.MinNotice())) {
		return &ValidationError{Field: "start", Reason: ErrInsideNotice.Error(), Rule: ErrInsideNotice}
	}

	proposed := instantOf(start, end)
	for _, b := range existing {
		if !b.Status.Blocking() {
			continue
		}
		blocked := instantOf(b.Start.Add(-cal.BufferBefore()), b.End.Add(cal.BufferAfter()))
		if proposed.overlaps(blocked) {
			return &ConflictError{Reason: ErrSlotTaken, BookingID: b.ID}
		}
	}
	return nil
}

// ensureWithinWindow rejects bookings that do not fit in [now, now + window),
// the same bound Window applies to availability.
func ensureWithinWindow(cal *Calendar, start, end time.Time, now time.Time) error {
	limit := now.AddDate(0, 0, cal.BookingWindowDays)
	if !start.Before(limit) || end.After(limit) {
		return &ValidationError{Field: "start", Reason: ErrOutsideWindow.Error(), Rule: ErrOutsideWindow}
	}
	return nil
}

// EnsureBookable runs every admission check for a new booking: the conflict
// checker, the booking window and containment in the calendar's rules.
func EnsureBookable(cal *Calendar, rules []AvailabilityRule, start, end time.Time, existing []Booking, now time.Time) error {
	if err := EnsureSlotIsAvailable(cal, start, end, existing, now); err != nil {
		return err
	}
	if err := ensureWithinWindow(cal, start, end, now); err != nil {
		return err
	}
	ok, err := WithinAvailability(cal, rules, start, end)
	if err != nil {
		return err
	}
	if !ok {
		return &ValidationError{Field: "start", Reason: ErrOutsideAvailability.Error(), Rule: ErrOutsideAvailability}
	}
	return nil
}
