package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// ValidateRules rejects structurally invalid rule sets and sets in which two
// intervals of the same polarity overlap on one day. Overlap between an
// available and an unavailable interval is a carve-out and is allowed.
func ValidateRules(rules []AvailabilityRule) error {
	type polarityKey struct {
		group       string
		unavailable bool
	}
	groups := make(map[polarityKey][]span[int])
	owner := make(map[polarityKey][]int)

	for i, r := range rules {
		field := fmt.Sprintf("rules[%d]", i)
		switch r.Type {
		case RuleWeekly:
			if r.DayOfWeek == nil {
				return Invalid(field+".day_of_week", "required for weekly rules")
			}
			if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
				return Invalid(field+".day_of_week", "must be between 0 and 6")
			}
			if r.SpecificDate != nil {
				return Invalid(field+".specific_date", "not allowed on weekly rules")
			}
		case RuleDate:
			if r.SpecificDate == nil {
				return Invalid(field+".specific_date", "required for date rules")
			}
			if _, err := time.Parse(DateLayout, *r.SpecificDate); err != nil {
				return Invalid(field+".specific_date", "must be formatted as YYYY-MM-DD")
			}
			if r.DayOfWeek != nil {
				return Invalid(field+".day_of_week", "not allowed on date rules")
			}
		default:
			return Invalid(field+".rule_type", fmt.Sprintf("unknown rule type %q", r.Type))
		}

		if r.StartMinutes < 0 || r.StartMinutes > MinutesPerDay || r.EndMinutes < 0 || r.EndMinutes > MinutesPerDay {
			return Invalid(field, fmt.Sprintf("minutes must be within [0, %d]", MinutesPerDay))
		}
		if r.StartMinutes >= r.EndMinutes {
			return Invalid(field, "start_minutes must be before end_minutes")
		}

		key := polarityKey{group: r.groupKey(), unavailable: r.IsUnavailable}
		cur := span[int]{r.StartMinutes, r.EndMinutes}
		for j, other := range groups[key] {
			if cur.overlaps(other) {
				return Invalid(field, fmt.Sprintf("overlaps rules[%d] on %s", owner[key][j], strings.TrimPrefix(strings.TrimPrefix(key.group, "dow:"), "date:")))
			}
		}
		groups[key] = append(groups[key], cur)
		owner[key] = append(owner[key], i)
	}
	return nil
}

// ValidateCalendar checks the configuration invariants of a calendar.
func ValidateCalendar(c *Calendar) error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("name", "required")
	}
	if c.DurationMinutes <= 0 {
		return Invalid("duration_minutes", "must be positive")
	}
	if c.BufferBeforeMinutes < 0 {
		return Invalid("buffer_before_minutes", "must not be negative")
	}
	if c.BufferAfterMinutes < 0 {
		return Invalid("buffer_after_minutes", "must not be negative")
	}
	if c.DurationMinutes+c.BufferBeforeMinutes+c.BufferAfterMinutes <= 0 {
		return Invalid("duration_minutes", "duration and buffers must sum to a positive value")
	}
	if c.BookingWindowDays < 1 {
		return Invalid("booking_window_days", "must be at least 1")
	}
	if c.MinNoticeMinutes < 0 {
		return Invalid("min_notice_minutes", "must not be negative")
	}
	if _, err := c.Zone(); err != nil {
		return err
	}
	if c.Location != nil {
		if _, err := Record(c.Location).Location(); err != nil {
			return err
		}
	}
	return nil
}
