package scheduling

import (
	"time"
)

// Query bounds an availability computation. Zero From/To select the defaults:
// now and now + the calendar's booking window.
type Query struct {
	Now  time.Time
	From time.Time
	To   time.Time
}

// Window resolves the effective [from, to) of a query. Caller bounds are
// clamped to [now, now + bookingWindowDays].
func Window(cal *Calendar, q Query) (time.Time, time.Time) {
	limit := q.Now.AddDate(0, 0, cal.BookingWindowDays)
	from, to := q.From, q.To
	if from.IsZero() || from.Before(q.Now) {
		from = q.Now
	}
	if to.IsZero() || to.After(limit) {
		to = limit
	}
	return from, to
}

// ComputeAvailability expands the calendar's rules into bookable slots grouped
// by calendar-local date. Days without slots are omitted. Only bookings with a
// blocking status consume time, padded by the calendar's buffers.
//
// Slots are cut back-to-back from the start of each free interval; a trailing
// remainder shorter than the session duration is dropped, as is any slot that
// starts before now + minimum notice or falls outside the query window.
func ComputeAvailability(cal *Calendar, rules []AvailabilityRule, bookings []Booking, q Query) (*AvailabilityWindow, error) {
	loc, err := cal.Zone()
	if err != nil {
		return nil, err
	}
	if cal.DurationMinutes <= 0 {
		return nil, Invalid("duration_minutes", "must be positive")
	}
	if q.Now.IsZero() {
		q.Now = time.Now()
	}
	from, to := Window(cal, q)
	out := &AvailabilityWindow{
		CalendarID: cal.ID,
		TimeZone:   cal.TimeZone,
		From:       from.In(loc),
		To:         to.In(loc),
		Days:       []DayAvailability{},
	}
	if !from.Before(to) {
		return out, nil
	}

	busy := busySpans(cal, bookings)
	earliest := q.Now.Add(cal.MinNotice())
	dur := cal.Duration()

	for day := localMidnight(from, loc); day.Before(to); day = nextDay(day) {
		free := subtract(dayInstants(day, rules, loc), busy)

		var slots []Slot
		for _, s := range free {
			start := fromMillis(s.start, loc)
			end := fromMillis(s.end, loc)
			for t := start; !t.Add(dur).After(end); t = t.Add(dur) {
				slot := Slot{Start: t, End: t.Add(dur)}
				if slot.Start.Before(earliest) || slot.Start.Before(from) || slot.End.After(to) {
					continue
				}
				slots = append(slots, slot)
			}
		}
		if len(slots) > 0 {
			out.Days = append(out.Days, DayAvailability{Date: day.Format(DateLayout), Slots: slots})
		}
	}
	return out, nil
}

// WithinAvailability reports whether [start, end) lies entirely inside the
// rule-derived availability of a single local day. Bookings are not
// considered; that is the conflict checker's job.
func WithinAvailability(cal *Calendar, rules []AvailabilityRule, start, end time.Time) (bool, error) {
	loc, err := cal.Zone()
	if err != nil {
		return false, err
	}
	want := instantOf(start, end)
	for day := localMidnight(start, loc); day.Before(end); day = nextDay(day) {
		for _, s := range dayInstants(day, rules, loc) {
			if s.start <= want.start && want.end <= s.end {
				return true, nil
			}
		}
	}
	return false, nil
}

// dayMinutes is the local-minute availability of one date: date rules for
// that date if any exist, the weekly rules of its weekday otherwise.
func dayMinutes(day time.Time, rules []AvailabilityRule) []span[int] {
	date := day.Format(DateLayout)
	var dated, weekly []AvailabilityRule
	for _, r := range rules {
		switch r.Type {
		case RuleDate:
			if r.SpecificDate != nil && *r.SpecificDate == date {
				dated = append(dated, r)
			}
		case RuleWeekly:
			if r.DayOfWeek != nil && time.Weekday(*r.DayOfWeek) == day.Weekday() {
				weekly = append(weekly, r)
			}
		}
	}
	applied := weekly
	if len(dated) > 0 {
		applied = dated
	}

	var open, closed []span[int]
	for _, r := range applied {
		s := span[int]{r.StartMinutes, r.EndMinutes}
		if r.IsUnavailable {
			closed = append(closed, s)
		} else {
			open = append(open, s)
		}
	}
	return subtract(open, closed)
}

// dayInstants converts a day's local-minute availability to absolute spans.
// Wall-clock conversion goes through time.Date so DST shifts are honoured.
func dayInstants(day time.Time, rules []AvailabilityRule, loc *time.Location) []instant {
	y, m, d := day.Date()
	var out []instant
	for _, s := range dayMinutes(day, rules) {
		start := time.Date(y, m, d, 0, s.start, 0, 0, loc)
		end := time.Date(y, m, d, 0, s.end, 0, 0, loc)
		if start.Before(end) {
			out = append(out, instantOf(start, end))
		}
	}
	return out
}

func busySpans(cal *Calendar, bookings []Booking) []instant {
	var busy []instant
	for _, b := range bookings {
		if !b.Status.Blocking() {
			continue
		}
		busy = append(busy, instantOf(b.Start.Add(-cal.BufferBefore()), b.End.Add(cal.BufferAfter())))
	}
	return busy
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func nextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}
