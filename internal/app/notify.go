package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"appointment-service/internal/scheduling"
)

type EventType string

const (
	EventBookingCreated       EventType = "booking.created"
	EventBookingStatusChanged EventType = "booking.status_changed"
)

// BookingEvent is handed to notifiers after a booking write commits.
type BookingEvent struct {
	Type       EventType           `json:"type"`
	Booking    scheduling.Booking  `json:"booking"`
	Calendar   scheduling.Calendar `json:"calendar"`
	Before     scheduling.Status   `json:"before,omitempty"`
	After      scheduling.Status   `json:"after"`
	Reason     string              `json:"reason,omitempty"`
	Location   string              `json:"location"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func newEvent(typ EventType, cal *scheduling.Calendar, b *scheduling.Booking, before scheduling.Status, reason string, at time.Time) BookingEvent {
	return BookingEvent{
		Type:       typ,
		Booking:    *b,
		Calendar:   *cal,
		Before:     before,
		After:      b.Status,
		Reason:     reason,
		Location:   scheduling.LocationSummary(cal.Location),
		OccurredAt: at,
	}
}

// NamedNotifier labels a notifier in logs.
type NamedNotifier struct {
	Name string
	Notifier
}

// Fanout delivers each event to every notifier concurrently. One failing
// notifier does not stop the others; the first error is returned.
type Fanout struct {
	Notifiers []NamedNotifier
	Log       *slog.Logger
}

func NewFanout(logger *slog.Logger, notifiers ...NamedNotifier) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{Notifiers: notifiers, Log: logger.With("component", "notify")}
}

func (f *Fanout) Add(name string, n Notifier) {
	f.Notifiers = append(f.Notifiers, NamedNotifier{Name: name, Notifier: n})
}

func (f *Fanout) Notify(ctx context.Context, ev BookingEvent) error {
	var g errgroup.Group
	for _, n := range f.Notifiers {
		g.Go(func() error {
			if err := n.Notify(ctx, ev); err != nil {
				f.Log.Error("Notifier failed", "notifier", n.Name, "booking_id", ev.Booking.ID, "error", err)
				return err
			}
			f.Log.Debug("Notifier delivered", "notifier", n.Name, "booking_id", ev.Booking.ID, "after", ev.After)
			return nil
		})
	}
	return g.Wait()
}
