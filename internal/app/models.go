package app

import (
	"net/mail"
	"strings"
	"time"

	"appointment-service/internal/scheduling"
)

// BookingInput carries guest fields for a new booking.
type BookingInput struct {
	GuestName     string    `json:"guest_name" binding:"required"`
	GuestEmail    string    `json:"guest_email" binding:"required,email"`
	GuestTimeZone string    `json:"guest_time_zone,omitempty"`
	GuestNotes    string    `json:"guest_notes,omitempty"`
	Start         time.Time `json:"start" binding:"required"`
	End           time.Time `json:"end" binding:"required"`
	MeetingURL    string    `json:"meeting_url,omitempty"`
}

func (in *BookingInput) normalize() error {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.GuestEmail = strings.TrimSpace(in.GuestEmail)
	in.GuestTimeZone = strings.TrimSpace(in.GuestTimeZone)
	if in.GuestName == "" {
		return scheduling.Invalid("guest_name", "required")
	}
	if _, err := mail.ParseAddress(in.GuestEmail); err != nil {
		return scheduling.Invalid("guest_email", "must be a valid email address")
	}
	if in.GuestTimeZone != "" {
		if _, err := time.LoadLocation(in.GuestTimeZone); err != nil {
			return scheduling.Invalid("guest_time_zone", "unknown time zone")
		}
	}
	if in.Start.IsZero() {
		return scheduling.Invalid("start", "required")
	}
	if in.End.IsZero() {
		return scheduling.Invalid("end", "required")
	}
	in.Start = in.Start.UTC()
	in.End = in.End.UTC()
	return nil
}

// StatusInput requests a booking status change.
type StatusInput struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason,omitempty"`
}

// CalendarInput is used for both creation and partial updates; nil fields
// are left unchanged on update.
type CalendarInput struct {
	Name                *string                    `json:"name"`
	AppointmentType     *string                    `json:"appointment_type"`
	Location            *scheduling.LocationRecord `json:"location"`
	DurationMinutes     *int                       `json:"duration_minutes"`
	BufferBeforeMinutes *int                       `json:"buffer_before_minutes"`
	BufferAfterMinutes  *int                       `json:"buffer_after_minutes"`
	TimeZone            *string                    `json:"time_zone"`
	BookingWindowDays   *int                       `json:"booking_window_days"`
	MinNoticeMinutes    *int                       `json:"min_notice_minutes"`
	RequireConfirmation *bool                      `json:"require_confirmation"`
	ExternalSyncEnabled *bool                      `json:"external_sync_enabled"`
}

// apply copies every set field onto cal.
func (in *CalendarInput) apply(cal *scheduling.Calendar) error {
	if in.Name != nil {
		cal.Name = strings.TrimSpace(*in.Name)
	}
	if in.AppointmentType != nil {
		cal.AppointmentType = *in.AppointmentType
	}
	if in.Location != nil {
		loc, err := in.Location.Location()
		if err != nil {
			return err
		}
		cal.Location = loc
	}
	if in.DurationMinutes != nil {
		cal.DurationMinutes = *in.DurationMinutes
	}
	if in.BufferBeforeMinutes != nil {
		cal.BufferBeforeMinutes = *in.BufferBeforeMinutes
	}
	if in.BufferAfterMinutes != nil {
		cal.BufferAfterMinutes = *in.BufferAfterMinutes
	}
	if in.TimeZone != nil {
		cal.TimeZone = *in.TimeZone
	}
	if in.BookingWindowDays != nil {
		cal.BookingWindowDays = *in.BookingWindowDays
	}
	if in.MinNoticeMinutes != nil {
		cal.MinNoticeMinutes = *in.MinNoticeMinutes
	}
	if in.RequireConfirmation != nil {
		cal.RequireConfirmation = *in.RequireConfirmation
	}
	if in.ExternalSyncEnabled != nil {
		cal.ExternalSyncEnabled = *in.ExternalSyncEnabled
	}
	return nil
}

// PublicCalendar is the share-link view of a calendar; it omits tenant data.
type PublicCalendar struct {
	Name                string                    `json:"name"`
	AppointmentType     string                    `json:"appointment_type"`
	Location            scheduling.LocationRecord `json:"location"`
	DurationMinutes     int                       `json:"duration_minutes"`
	TimeZone            string                    `json:"time_zone"`
	BookingWindowDays   int                       `json:"booking_window_days"`
	RequireConfirmation bool                      `json:"require_confirmation"`
}

func publicView(cal *scheduling.Calendar) PublicCalendar {
	return PublicCalendar{
		Name:                cal.Name,
		AppointmentType:     cal.AppointmentType,
		Location:            scheduling.Record(cal.Location),
		DurationMinutes:     cal.DurationMinutes,
		TimeZone:            cal.TimeZone,
		BookingWindowDays:   cal.BookingWindowDays,
		RequireConfirmation: cal.RequireConfirmation,
	}
}
