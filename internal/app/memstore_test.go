package app

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"appointment-service/internal/scheduling"
)

// memStore is an in-memory Store. InsertBooking enforces the same overlap
// rule as the Postgres exclusion constraint.
type memStore struct {
	mu        sync.Mutex
	calendars map[string]*scheduling.Calendar
	rules     map[string][]scheduling.AvailabilityRule
	bookings  map[string]*scheduling.Booking
	tokens    map[string][]byte
	locks     map[string]*sync.Mutex
	nextRule  int

	failRules error
}

func newMemStore() *memStore {
	return &memStore{
		calendars: map[string]*scheduling.Calendar{},
		rules:     map[string][]scheduling.AvailabilityRule{},
		bookings:  map[string]*scheduling.Booking{},
		tokens:    map[string][]byte{},
		locks:     map[string]*sync.Mutex{},
	}
}

func (s *memStore) CreateCalendar(_ context.Context, cal *scheduling.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cal
	s.calendars[cal.ID] = &c
	return nil
}

func (s *memStore) GetCalendar(_ context.Context, businessID, calendarID string) (*scheduling.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[calendarID]
	if !ok || c.BusinessID != businessID {
		return nil, &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) GetCalendarByShareID(_ context.Context, shareID string) (*scheduling.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calendars {
		if c.ShareID == shareID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, &scheduling.NotFoundError{Resource: "calendar", ID: shareID}
}

func (s *memStore) ListCalendars(_ context.Context, businessID string) ([]scheduling.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []scheduling.Calendar{}
	for _, c := range s.calendars {
		if c.BusinessID == businessID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateCalendar(_ context.Context, cal *scheduling.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[cal.ID]
	if !ok || c.BusinessID != cal.BusinessID {
		return &scheduling.NotFoundError{Resource: "calendar", ID: cal.ID}
	}
	cp := *cal
	s.calendars[cal.ID] = &cp
	return nil
}

func (s *memStore) DeleteCalendar(_ context.Context, businessID, calendarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calendars[calendarID]
	if !ok || c.BusinessID != businessID {
		return &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	delete(s.calendars, calendarID)
	delete(s.rules, calendarID)
	for id, b := range s.bookings {
		if b.CalendarID == calendarID {
			delete(s.bookings, id)
		}
	}
	return nil
}

func (s *memStore) ListRules(_ context.Context, calendarID string) ([]scheduling.AvailabilityRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rules[calendarID]), nil
}

func (s *memStore) ReplaceRules(_ context.Context, calendarID string, rules []scheduling.AvailabilityRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRules != nil {
		return &scheduling.StorageError{Op: "replace rules", Err: s.failRules}
	}
	stored := make([]scheduling.AvailabilityRule, len(rules))
	for i, r := range rules {
		s.nextRule++
		r.ID = strconv.Itoa(s.nextRule)
		r.CalendarID = calendarID
		stored[i] = r
	}
	s.rules[calendarID] = stored
	return nil
}

func (s *memStore) ListBookings(_ context.Context, calendarID string, f BookingFilter) ([]scheduling.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(calendarID, f), nil
}

func (s *memStore) listLocked(calendarID string, f BookingFilter) []scheduling.Booking {
	out := []scheduling.Booking{}
	for _, b := range s.bookings {
		if b.CalendarID != calendarID {
			continue
		}
		if !f.From.IsZero() && !b.End.After(f.From) {
			continue
		}
		if !f.To.IsZero() && !b.Start.Before(f.To) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (s *memStore) WithCalendarLock(ctx context.Context, calendarID string, fn func(tx BookingTx) error) error {
	s.mu.Lock()
	if _, ok := s.calendars[calendarID]; !ok {
		s.mu.Unlock()
		return &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	lock, ok := s.locks[calendarID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[calendarID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	tx := &memTx{s: s, pending: map[string]*scheduling.Booking{}}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range tx.pending {
		s.bookings[id] = b
	}
	return nil
}

func (s *memStore) SaveGoogleToken(_ context.Context, calendarID string, token []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[calendarID] = token
	return nil
}

func (s *memStore) GoogleToken(_ context.Context, calendarID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[calendarID]
	if !ok {
		return nil, &scheduling.NotFoundError{Resource: "google token", ID: calendarID}
	}
	return tok, nil
}

// memTx buffers writes until the surrounding WithCalendarLock commits.
type memTx struct {
	s       *memStore
	pending map[string]*scheduling.Booking
}

func (t *memTx) ListBookings(ctx context.Context, calendarID string, f BookingFilter) ([]scheduling.Booking, error) {
	return t.s.ListBookings(ctx, calendarID, f)
}

func (t *memTx) GetBooking(_ context.Context, calendarID, bookingID string) (*scheduling.Booking, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.bookings[bookingID]
	if !ok || b.CalendarID != calendarID {
		return nil, &scheduling.NotFoundError{Resource: "booking", ID: bookingID}
	}
	cp := *b
	return &cp, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *scheduling.Booking) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if b.Status.Blocking() {
		overlap := t.s.listLocked(b.CalendarID, BookingFilter{From: b.Start, To: b.End, Statuses: blockingStatuses})
		if len(overlap) > 0 {
			return &scheduling.ConflictError{Reason: scheduling.ErrSlotTaken, BookingID: overlap[0].ID}
		}
	}
	cp := *b
	t.pending[b.ID] = &cp
	return nil
}

func (t *memTx) UpdateBookingStatus(_ context.Context, bookingID string, status scheduling.Status, _ string, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.bookings[bookingID]
	if !ok {
		return &scheduling.NotFoundError{Resource: "booking", ID: bookingID}
	}
	cp := *b
	cp.Status = status
	cp.UpdatedAt = at
	t.pending[bookingID] = &cp
	return nil
}

// recorder collects delivered events.
type recorder struct {
	mu     sync.Mutex
	events []BookingEvent
	err    error
}

func (r *recorder) Notify(_ context.Context, ev BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recorder) Events() []BookingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

var errNotifierDown = errors.New("notifier down")
