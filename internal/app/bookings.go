package app

import (
	"context"

	"github.com/google/uuid"

	"appointment-service/internal/scheduling"
)

var blockingStatuses = []scheduling.Status{scheduling.StatusPending, scheduling.StatusScheduled}

// CreateBooking books [in.Start, in.End) on a calendar of the caller's business.
func (a *App) CreateBooking(ctx context.Context, p Principal, calendarID string, in BookingInput) (*scheduling.Booking, error) {
	if err := p.requireWrite(); err != nil {
		return nil, err
	}
	cal, err := a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
	if err != nil {
		return nil, err
	}
	return a.createBooking(ctx, cal, in)
}

// CreatePublicBooking books through a share link on behalf of an anonymous guest.
func (a *App) CreatePublicBooking(ctx context.Context, shareID string, in BookingInput) (*scheduling.Booking, error) {
	cal, err := a.Store.GetCalendarByShareID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	return a.createBooking(ctx, cal, in)
}

func (a *App) createBooking(ctx context.Context, cal *scheduling.Calendar, in BookingInput) (*scheduling.Booking, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	rules, err := a.Store.ListRules(ctx, cal.ID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	b := &scheduling.Booking{
		ID:            uuid.NewString(),
		CalendarID:    cal.ID,
		GuestName:     in.GuestName,
		GuestEmail:    in.GuestEmail,
		GuestTimeZone: in.GuestTimeZone,
		GuestNotes:    in.GuestNotes,
		Start:         in.Start,
		End:           in.End,
		Status:        scheduling.InitialStatus(cal),
		MeetingURL:    in.MeetingURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// The check runs again under the calendar lock; the storage exclusion
	// constraint still rejects any overlap that slips past it.
	err = a.Store.WithCalendarLock(ctx, cal.ID, func(tx BookingTx) error {
		existing, err := tx.ListBookings(ctx, cal.ID, BookingFilter{
			From:     in.Start.Add(-cal.BufferAfter()),
			To:       in.End.Add(cal.BufferBefore()),
			Statuses: blockingStatuses,
		})
		if err != nil {
			return err
		}
		if err := scheduling.EnsureBookable(cal, rules, in.Start, in.End, existing, now); err != nil {
			return err
		}
		return tx.InsertBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	a.Log.Info("Booking created", "booking_id", b.ID, "calendar_id", cal.ID, "status", b.Status, "start", b.Start)
	a.invalidate(ctx, cal.ID)
	a.dispatch(newEvent(EventBookingCreated, cal, b, "", "", now))
	return b, nil
}

// UpdateBookingStatus moves a booking along the status transition table.
func (a *App) UpdateBookingStatus(ctx context.Context, p Principal, calendarID, bookingID string, target scheduling.Status, reason string) (*scheduling.Booking, error) {
	if err := p.requireWrite(); err != nil {
		return nil, err
	}
	cal, err := a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
	if err != nil {
		return nil, err
	}
	return a.TransitionBooking(ctx, cal, bookingID, target, reason)
}

// TransitionBooking validates and persists a status change, then notifies.
func (a *App) TransitionBooking(ctx context.Context, cal *scheduling.Calendar, bookingID string, target scheduling.Status, reason string) (*scheduling.Booking, error) {
	var (
		b      *scheduling.Booking
		before scheduling.Status
	)
	now := a.now()
	err := a.Store.WithCalendarLock(ctx, cal.ID, func(tx BookingTx) error {
		var err error
		b, err = tx.GetBooking(ctx, cal.ID, bookingID)
		if err != nil {
			return err
		}
		before = b.Status
		next, err := scheduling.Transition(b.Status, target)
		if err != nil {
			return err
		}
		if err := tx.UpdateBookingStatus(ctx, b.ID, next, reason, now); err != nil {
			return err
		}
		b.Status = next
		b.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.Log.Info("Booking status changed", "booking_id", b.ID, "calendar_id", cal.ID, "from", before, "to", b.Status)
	a.invalidate(ctx, cal.ID)
	a.dispatch(newEvent(EventBookingStatusChanged, cal, b, before, reason, now))
	return b, nil
}

// ListBookings returns the calendar's bookings for staff.
func (a *App) ListBookings(ctx context.Context, p Principal, calendarID string, f BookingFilter) ([]scheduling.Booking, error) {
	cal, err := a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
	if err != nil {
		return nil, err
	}
	return a.Store.ListBookings(ctx, cal.ID, f)
}
