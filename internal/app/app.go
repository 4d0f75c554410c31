package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"appointment-service/internal/scheduling"
)

// BookingFilter selects bookings whose [start, end) overlaps [From, To).
// Zero bounds and an empty status list match everything.
type BookingFilter struct {
	From     time.Time
	To       time.Time
	Statuses []scheduling.Status
}

// Store is the persistence boundary. Every calendar read is keyed by tenant
// so that a calendar of another business reads as not found.
type Store interface {
	CreateCalendar(ctx context.Context, cal *scheduling.Calendar) error
	GetCalendar(ctx context.Context, businessID, calendarID string) (*scheduling.Calendar, error)
	GetCalendarByShareID(ctx context.Context, shareID string) (*scheduling.Calendar, error)
	ListCalendars(ctx context.Context, businessID string) ([]scheduling.Calendar, error)
	UpdateCalendar(ctx context.Context, cal *scheduling.Calendar) error
	DeleteCalendar(ctx context.Context, businessID, calendarID string) error

	ListRules(ctx context.Context, calendarID string) ([]scheduling.AvailabilityRule, error)
	// ReplaceRules deletes and inserts the calendar's rules in one transaction.
	ReplaceRules(ctx context.Context, calendarID string, rules []scheduling.AvailabilityRule) error

	ListBookings(ctx context.Context, calendarID string, f BookingFilter) ([]scheduling.Booking, error)
	// WithCalendarLock runs fn in a transaction that excludes every other
	// writer on the same calendar until it commits.
	WithCalendarLock(ctx context.Context, calendarID string, fn func(tx BookingTx) error) error

	SaveGoogleToken(ctx context.Context, calendarID string, token []byte) error
	GoogleToken(ctx context.Context, calendarID string) ([]byte, error)
}

// BookingTx is the booking view inside WithCalendarLock.
type BookingTx interface {
	ListBookings(ctx context.Context, calendarID string, f BookingFilter) ([]scheduling.Booking, error)
	GetBooking(ctx context.Context, calendarID, bookingID string) (*scheduling.Booking, error)
	InsertBooking(ctx context.Context, b *scheduling.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID string, status scheduling.Status, reason string, at time.Time) error
}

// Notifier receives booking lifecycle events. Failures are logged by the
// caller and never affect the booking write.
type Notifier interface {
	Notify(ctx context.Context, ev BookingEvent) error
}

// AvailabilityCache stores computed windows per calendar. Get returns the
// version the entry was read under; Put must be given that version so that a
// concurrent invalidation is never overwritten with stale data.
type AvailabilityCache interface {
	Get(ctx context.Context, calendarID, key string) (w *scheduling.AvailabilityWindow, version string, ok bool)
	Put(ctx context.Context, calendarID, version, key string, w *scheduling.AvailabilityWindow)
	Invalidate(ctx context.Context, calendarID string)
}

var ErrForbidden = errors.New("forbidden")

// App is the booking orchestrator and the sole write path into booking state.
type App struct {
	Store    Store
	Notifier Notifier
	Cache    AvailabilityCache
	Log      *slog.Logger

	// Now is the clock; tests pin it.
	Now           func() time.Time
	NotifyTimeout time.Duration

	// PublicBaseURL prefixes share links; empty means derive from the request.
	PublicBaseURL string

	mu         sync.Mutex
	queue      []BookingEvent
	delivering bool
	inflight   sync.WaitGroup
}

func New(store Store, notifier Notifier, cache AvailabilityCache, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Store:         store,
		Notifier:      notifier,
		Cache:         cache,
		Log:           logger.With("component", "booking"),
		Now:           time.Now,
		NotifyTimeout: 10 * time.Second,
	}
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now().UTC()
	}
	return a.Now().UTC()
}

func (a *App) invalidate(ctx context.Context, calendarID string) {
	if a.Cache != nil {
		a.Cache.Invalidate(context.WithoutCancel(ctx), calendarID)
	}
}

// dispatch queues ev for background delivery. The booking write has already
// committed, so errors only get logged. Events reach the notifier one at a
// time in dispatch order.
func (a *App) dispatch(ev BookingEvent) {
	if a.Notifier == nil {
		return
	}
	a.inflight.Add(1)
	a.mu.Lock()
	a.queue = append(a.queue, ev)
	start := !a.delivering
	a.delivering = true
	a.mu.Unlock()
	if start {
		go a.deliver()
	}
}

// deliver drains the queue and exits once it is empty.
func (a *App) deliver() {
	for {
		a.mu.Lock()
		if len(a.queue) == 0 {
			a.delivering = false
			a.mu.Unlock()
			return
		}
		ev := a.queue[0]
		a.queue = a.queue[1:]
		a.mu.Unlock()

		a.notify(ev)
		a.inflight.Done()
	}
}

func (a *App) notify(ev BookingEvent) {
	timeout := a.NotifyTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := a.Notifier.Notify(ctx, ev); err != nil {
		a.Log.Warn("Booking notification failed",
			"error", err,
			"booking_id", ev.Booking.ID,
			"event", ev.Type,
		)
	}
}

// Drain blocks until every queued notification has been delivered.
func (a *App) Drain() {
	a.inflight.Wait()
}
