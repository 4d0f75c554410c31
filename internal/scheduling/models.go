package scheduling

import "time"

// MinutesPerDay bounds rule offsets from local midnight.
const MinutesPerDay = 24 * 60

// DateLayout is the wire and storage form of a calendar-local date.
const DateLayout = "2006-01-02"

// Calendar is a bookable schedule owned by one business.
type Calendar struct {
	ID                  string    `json:"id"`
	BusinessID          string    `json:"business_id"`
	OwnerID             string    `json:"owner_id"`
	Name                string    `json:"name"`
	AppointmentType     string    `json:"appointment_type"`
	Location            Location  `json:"-"`
	DurationMinutes     int       `json:"duration_minutes"`
	BufferBeforeMinutes int       `json:"buffer_before_minutes"`
	BufferAfterMinutes  int       `json:"buffer_after_minutes"`
	TimeZone            string    `json:"time_zone"`
	BookingWindowDays   int       `json:"booking_window_days"`
	MinNoticeMinutes    int       `json:"min_notice_minutes"`
	RequireConfirmation bool      `json:"require_confirmation"`
	ExternalSyncEnabled bool      `json:"external_sync_enabled"`
	ShareID             string    `json:"share_id"`
	CreatedAt           time.Time `json:"created_at,omitempty"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"`
}

func (c *Calendar) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}

func (c *Calendar) BufferBefore() time.Duration {
	return time.Duration(c.BufferBeforeMinutes) * time.Minute
}

func (c *Calendar) BufferAfter() time.Duration {
	return time.Duration(c.BufferAfterMinutes) * time.Minute
}

func (c *Calendar) MinNotice() time.Duration {
	return time.Duration(c.MinNoticeMinutes) * time.Minute
}

// Zone loads the calendar's IANA time zone.
func (c *Calendar) Zone() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, Invalid("time_zone", "unknown time zone "+c.TimeZone)
	}
	return loc, nil
}

// RuleType distinguishes recurring weekly rules from single-date overrides.
type RuleType string

const (
	RuleWeekly RuleType = "weekly"
	RuleDate   RuleType = "date"
)

// AvailabilityRule is one interval of a calendar's schedule, in minutes from
// local midnight. Weekly rules carry DayOfWeek (0 = Sunday); date rules carry
// SpecificDate and replace every weekly rule for that date.
type AvailabilityRule struct {
	ID            string   `json:"id,omitempty"`
	CalendarID    string   `json:"calendar_id,omitempty"`
	Type          RuleType `json:"rule_type"`
	DayOfWeek     *int     `json:"day_of_week,omitempty"`
	SpecificDate  *string  `json:"specific_date,omitempty"`
	StartMinutes  int      `json:"start_minutes"`
	EndMinutes    int      `json:"end_minutes"`
	IsUnavailable bool     `json:"is_unavailable"`
}

// WeeklyRule is a convenience constructor.
func WeeklyRule(day time.Weekday, start, end int) AvailabilityRule {
	d := int(day)
	return AvailabilityRule{Type: RuleWeekly, DayOfWeek: &d, StartMinutes: start, EndMinutes: end}
}

// DateRule is a convenience constructor; date uses DateLayout.
func DateRule(date string, start, end int, unavailable bool) AvailabilityRule {
	return AvailabilityRule{Type: RuleDate, SpecificDate: &date, StartMinutes: start, EndMinutes: end, IsUnavailable: unavailable}
}

// groupKey identifies the day a rule applies to. Only meaningful after validation.
func (r AvailabilityRule) groupKey() string {
	if r.Type == RuleDate && r.SpecificDate != nil {
		return "date:" + *r.SpecificDate
	}
	if r.DayOfWeek != nil {
		return "dow:" + time.Weekday(*r.DayOfWeek).String()
	}
	return ""
}

// Booking is a guest's claim on a [Start, End) interval of one calendar.
type Booking struct {
	ID            string    `json:"id"`
	CalendarID    string    `json:"calendar_id"`
	GuestName     string    `json:"guest_name"`
	GuestEmail    string    `json:"guest_email"`
	GuestTimeZone string    `json:"guest_time_zone,omitempty"`
	GuestNotes    string    `json:"guest_notes,omitempty"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Status        Status    `json:"status"`
	MeetingURL    string    `json:"meeting_url,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Slot is an offered [Start, End) interval of exactly one session duration.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayAvailability groups slots by calendar-local date.
type DayAvailability struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// AvailabilityWindow is the result of an availability query.
type AvailabilityWindow struct {
	CalendarID string            `json:"calendar_id"`
	TimeZone   string            `json:"time_zone"`
	From       time.Time         `json:"from"`
	To         time.Time         `json:"to"`
	Days       []DayAvailability `json:"days"`
}
