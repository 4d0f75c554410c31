package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"appointment-service/internal/scheduling"
)

func testEvent(typ EventType, before, after scheduling.Status) BookingEvent {
	cal := &scheduling.Calendar{
		ID:       "cal-1",
		Name:     "Consultation",
		TimeZone: "UTC",
		Location: scheduling.Virtual{Provider: "zoom", Details: "link in invite"},
	}
	b := &scheduling.Booking{
		ID:         "5f0c6a3e-7d1b-4c59-9d7e-0a1b2c3d4e5f",
		CalendarID: cal.ID,
		GuestName:  "Ada",
		GuestEmail: "ada@example.com",
		Start:      at("10:00"),
		End:        at("10:30"),
		Status:     after,
	}
	return newEvent(typ, cal, b, before, "", testNow)
}

func TestFanout_DeliversToAll(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errNotifierDown}
	f := NewFanout(slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.Add("ok", ok)
	f.Add("failing", failing)

	err := f.Notify(context.Background(), testEvent(EventBookingCreated, "", scheduling.StatusScheduled))
	if !errors.Is(err, errNotifierDown) {
		t.Fatalf("expected notifier error, got %v", err)
	}
	if len(ok.Events()) != 1 || len(failing.Events()) != 1 {
		t.Fatalf("not every notifier saw the event: %d, %d", len(ok.Events()), len(failing.Events()))
	}
}

func TestNewEvent_LocationSummary(t *testing.T) {
	ev := testEvent(EventBookingCreated, "", scheduling.StatusScheduled)
	if ev.Location != "zoom: link in invite" {
		t.Errorf("location = %q", ev.Location)
	}
	if ev.After != scheduling.StatusScheduled || ev.OccurredAt != testNow {
		t.Errorf("unexpected event %+v", ev)
	}
}

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, html})
	return nil
}

func TestEmailNotifier(t *testing.T) {
	tests := []struct {
		name    string
		ev      BookingEvent
		subject string
	}{
		{"created pending", testEvent(EventBookingCreated, "", scheduling.StatusPending), "Booking request received: Consultation"},
		{"created scheduled", testEvent(EventBookingCreated, "", scheduling.StatusScheduled), "Booking confirmed: Consultation"},
		{"confirmed", testEvent(EventBookingStatusChanged, scheduling.StatusPending, scheduling.StatusScheduled), "Booking confirmed: Consultation"},
		{"cancelled", testEvent(EventBookingStatusChanged, scheduling.StatusScheduled, scheduling.StatusCancelled), "Booking cancelled: Consultation"},
		{"completed", testEvent(EventBookingStatusChanged, scheduling.StatusScheduled, scheduling.StatusCompleted), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMailer{}
			if err := (&EmailNotifier{Mailer: m}).Notify(context.Background(), tt.ev); err != nil {
				t.Fatal(err)
			}
			if tt.subject == "" {
				if len(m.sent) != 0 {
					t.Fatalf("unexpected mail %+v", m.sent)
				}
				return
			}
			if len(m.sent) != 1 {
				t.Fatalf("expected 1 mail, got %d", len(m.sent))
			}
			got := m.sent[0]
			if got.to != "ada@example.com" || got.subject != tt.subject {
				t.Errorf("to=%q subject=%q", got.to, got.subject)
			}
			for _, want := range []string{"Hello Ada", "Monday 19 October 2026", "10:00 to 10:30 (UTC)", "zoom: link in invite"} {
				if !strings.Contains(got.html, want) {
					t.Errorf("body missing %q:\n%s", want, got.html)
				}
			}
		})
	}
}

func TestEmailNotifier_GuestZone(t *testing.T) {
	ev := testEvent(EventBookingCreated, "", scheduling.StatusScheduled)
	ev.Booking.GuestTimeZone = "Not/AZone"
	m := &fakeMailer{}
	if err := (&EmailNotifier{Mailer: m}).Notify(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(m.sent[0].html, "(UTC)") {
		t.Errorf("unknown guest zone should fall back to UTC:\n%s", m.sent[0].html)
	}
}

func TestDispatch_Timeout(t *testing.T) {
	a, _, _, _ := newTestApp(t, nil)
	blocked := make(chan struct{})
	a.Notifier = notifierFunc(func(ctx context.Context, _ BookingEvent) error {
		<-ctx.Done()
		close(blocked)
		return ctx.Err()
	})
	a.NotifyTimeout = 10 * time.Millisecond

	a.dispatch(testEvent(EventBookingCreated, "", scheduling.StatusScheduled))
	a.Drain()
	select {
	case <-blocked:
	default:
		t.Fatal("notifier context was not cancelled")
	}
}

func TestDispatch_PreservesOrder(t *testing.T) {
	a, _, rec, cal := newTestApp(t, nil)
	// The created event is the slow one; the cancellation must still land after it.
	a.Notifier = notifierFunc(func(ctx context.Context, ev BookingEvent) error {
		if ev.Type == EventBookingCreated {
			time.Sleep(20 * time.Millisecond)
		}
		return rec.Notify(ctx, ev)
	})
	ctx := context.Background()

	b, err := a.CreateBooking(ctx, owner, cal.ID, guestInput(at("10:00"), at("10:30")))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.UpdateBookingStatus(ctx, owner, cal.ID, b.ID, scheduling.StatusCancelled, "guest asked"); err != nil {
		t.Fatal(err)
	}
	a.Drain()

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventBookingCreated || events[0].After != scheduling.StatusScheduled {
		t.Errorf("first event %s/%s, want created/scheduled", events[0].Type, events[0].After)
	}
	if events[1].Type != EventBookingStatusChanged || events[1].After != scheduling.StatusCancelled {
		t.Errorf("last event %s/%s, want status_changed/cancelled", events[1].Type, events[1].After)
	}

	// The queue restarts after draining.
	if _, err := a.CreateBooking(ctx, owner, cal.ID, guestInput(at("11:00"), at("11:30"))); err != nil {
		t.Fatal(err)
	}
	a.Drain()
	if n := len(rec.Events()); n != 3 {
		t.Fatalf("expected 3 events after second drain, got %d", n)
	}
}

type notifierFunc func(context.Context, BookingEvent) error

func (f notifierFunc) Notify(ctx context.Context, ev BookingEvent) error { return f(ctx, ev) }
