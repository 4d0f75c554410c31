package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"appointment-service/internal/scheduling"
)

const (
	defaultDurationMinutes   = 30
	defaultBookingWindowDays = 30
	defaultTimeZone          = "UTC"
)

// CreateCalendar creates a calendar for the caller's business.
func (a *App) CreateCalendar(ctx context.Context, p Principal, in CalendarInput) (*scheduling.Calendar, error) {
	if err := p.requireWrite(); err != nil {
		return nil, err
	}
	now := a.now()
	cal := &scheduling.Calendar{
		ID:                uuid.NewString(),
		BusinessID:        p.BusinessID,
		OwnerID:           p.UserID,
		Location:          scheduling.Custom{},
		DurationMinutes:   defaultDurationMinutes,
		TimeZone:          defaultTimeZone,
		BookingWindowDays: defaultBookingWindowDays,
		ShareID:           newShareID(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := in.apply(cal); err != nil {
		return nil, err
	}
	if err := scheduling.ValidateCalendar(cal); err != nil {
		return nil, err
	}
	if err := a.Store.CreateCalendar(ctx, cal); err != nil {
		return nil, err
	}
	a.Log.Info("Calendar created", "calendar_id", cal.ID, "business_id", cal.BusinessID)
	return cal, nil
}

func (a *App) GetCalendar(ctx context.Context, p Principal, calendarID string) (*scheduling.Calendar, error) {
	return a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
}

// GetPublicCalendar resolves a share link to its public view.
func (a *App) GetPublicCalendar(ctx context.Context, shareID string) (*PublicCalendar, error) {
	cal, err := a.Store.GetCalendarByShareID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	v := publicView(cal)
	return &v, nil
}

func (a *App) ListCalendars(ctx context.Context, p Principal) ([]scheduling.Calendar, error) {
	return a.Store.ListCalendars(ctx, p.BusinessID)
}

// UpdateCalendar applies a partial update and re-validates the result.
// Changing anything that shapes slots invalidates cached availability.
func (a *App) UpdateCalendar(ctx context.Context, p Principal, calendarID string, in CalendarInput) (*scheduling.Calendar, error) {
	if err := p.requireWrite(); err != nil {
		return nil, err
	}
	cal, err := a.Store.GetCalendar(ctx, p.BusinessID, calendarID)
	if err != nil {
		return nil, err
	}
	if err := in.apply(cal); err != nil {
		return nil, err
	}
	if err := scheduling.ValidateCalendar(cal); err != nil {
		return nil, err
	}
	cal.UpdatedAt = a.now()
	if err := a.Store.UpdateCalendar(ctx, cal); err != nil {
		return nil, err
	}
	a.invalidate(ctx, cal.ID)
	return cal, nil
}

// DeleteCalendar removes the calendar with its rules and bookings.
func (a *App) DeleteCalendar(ctx context.Context, p Principal, calendarID string) error {
	if err := p.requireWrite(); err != nil {
		return err
	}
	if err := a.Store.DeleteCalendar(ctx, p.BusinessID, calendarID); err != nil {
		return err
	}
	a.Log.Info("Calendar deleted", "calendar_id", calendarID, "business_id", p.BusinessID)
	a.invalidate(ctx, calendarID)
	return nil
}

func newShareID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
