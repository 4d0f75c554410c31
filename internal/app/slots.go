package app

import (
	"context"
	"fmt"
	"time"

	"appointment-service/internal/scheduling"
)

// AvailabilityRange is the optional caller range; zero values select the
// calendar's full booking window.
type AvailabilityRange struct {
	From time.Time
	To   time.Time
}

// ListAvailability returns bookable slots for a calendar of the caller's business.
func (a *App) ListAvailability(ctx context.Context, p Principal, calendarID string, r AvailabilityRange) (*scheduling.AvailabilityWindow, error) {
	cal, err := a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
	if err != nil {
		return nil, err
	}
	return a.availability(ctx, cal, r)
}

// ListPublicAvailability returns bookable slots through a share link.
func (a *App) ListPublicAvailability(ctx context.Context, shareID string, r AvailabilityRange) (*scheduling.AvailabilityWindow, error) {
	cal, err := a.Store.GetCalendarByShareID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	return a.availability(ctx, cal, r)
}

func (a *App) availability(ctx context.Context, cal *scheduling.Calendar, r AvailabilityRange) (*scheduling.AvailabilityWindow, error) {
	if !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To) {
		return nil, scheduling.Invalid("to", "must be after from")
	}

	// Rounding up keeps every slot of a cached minute at or past the notice
	// boundary for the whole minute.
	now := a.now()
	if t := now.Truncate(time.Minute); !t.Equal(now) {
		now = t.Add(time.Minute)
	}
	q := scheduling.Query{Now: now, From: r.From, To: r.To}
	from, to := scheduling.Window(cal, q)
	key := fmt.Sprintf("%d:%d:%d", now.Unix(), from.Unix(), to.Unix())

	var version string
	if a.Cache != nil {
		w, v, ok := a.Cache.Get(ctx, cal.ID, key)
		if ok {
			return w, nil
		}
		version = v
	}

	rules, err := a.Store.ListRules(ctx, cal.ID)
	if err != nil {
		return nil, err
	}
	var bookings []scheduling.Booking
	if from.Before(to) {
		bookings, err = a.Store.ListBookings(ctx, cal.ID, BookingFilter{
			From:     from.Add(-cal.BufferAfter()),
			To:       to.Add(cal.BufferBefore()),
			Statuses: blockingStatuses,
		})
		if err != nil {
			return nil, err
		}
	}

	w, err := scheduling.ComputeAvailability(cal, rules, bookings, q)
	if err != nil {
		return nil, err
	}
	if a.Cache != nil {
		a.Cache.Put(ctx, cal.ID, version, key, w)
	}
	return w, nil
}

// ListRules returns the calendar's availability rules.
func (a *App) ListRules(ctx context.Context, p Principal, calendarID string) ([]scheduling.AvailabilityRule, error) {
	cal, err := a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
	if err != nil {
		return nil, err
	}
	return a.Store.ListRules(ctx, cal.ID)
}

// ReplaceAvailabilityRules validates the full rule set and swaps it in
// atomically. On a validation failure nothing is persisted.
func (a *App) ReplaceAvailabilityRules(ctx context.Context, p Principal, calendarID string, rules []scheduling.AvailabilityRule) ([]scheduling.AvailabilityRule, error) {
	if err := p.requireWrite(); err != nil {
		return nil, err
	}
	cal, err := a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []scheduling.AvailabilityRule{}
	}
	for i := range rules {
		rules[i].CalendarID = cal.ID
		rules[i].ID = ""
	}
	if err := scheduling.ValidateRules(rules); err != nil {
		return nil, err
	}
	if err := a.Store.ReplaceRules(ctx, cal.ID, rules); err != nil {
		return nil, err
	}
	a.Log.Info("Availability rules replaced", "calendar_id", cal.ID, "count", len(rules))
	a.invalidate(ctx, cal.ID)
	return a.Store.ListRules(ctx, cal.ID)
}
