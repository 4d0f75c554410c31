package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"appointment-service/internal/scheduling"
)

// PGStore is the Postgres Store. Overlapping blocking bookings are also
// rejected by an exclusion constraint on the bookings table.
type PGStore struct {
	DB *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{DB: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgExclusionViolation = "23P01"
	pgUniqueViolation    = "23505"
	pgInvalidText        = "22P02"
)

// classify maps driver errors onto the domain error kinds. Errors that are
// already domain errors pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, scheduling.ErrValidation) ||
		errors.Is(err, scheduling.ErrConflict) ||
		errors.Is(err, scheduling.ErrInvalidTransition) ||
		errors.Is(err, scheduling.ErrNotFound) ||
		errors.Is(err, scheduling.ErrStorage) ||
		errors.Is(err, ErrForbidden) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgExclusionViolation:
			return &scheduling.ConflictError{Reason: scheduling.ErrSlotTaken}
		case pgUniqueViolation:
			return &scheduling.ConflictError{Reason: fmt.Errorf("duplicate %s", pgErr.ConstraintName)}
		}
	}
	return &scheduling.StorageError{Op: op, Err: err}
}

// notFound reports a missing row; malformed ids are treated the same way.
func notFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidText
}

const calendarColumns = `id::text, business_id, owner_id, name, appointment_type,
	location_kind, location_details, virtual_provider,
	duration_minutes, buffer_before_minutes, buffer_after_minutes,
	time_zone, booking_window_days, min_notice_minutes,
	require_confirmation, external_sync_enabled, share_id, created_at, updated_at`

func scanCalendar(row pgx.Row) (*scheduling.Calendar, error) {
	var (
		c   scheduling.Calendar
		rec scheduling.LocationRecord
	)
	err := row.Scan(&c.ID, &c.BusinessID, &c.OwnerID, &c.Name, &c.AppointmentType,
		&rec.Kind, &rec.Details, &rec.VirtualProvider,
		&c.DurationMinutes, &c.BufferBeforeMinutes, &c.BufferAfterMinutes,
		&c.TimeZone, &c.BookingWindowDays, &c.MinNoticeMinutes,
		&c.RequireConfirmation, &c.ExternalSyncEnabled, &c.ShareID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	loc, err := rec.Location()
	if err != nil {
		return nil, err
	}
	c.Location = loc
	return &c, nil
}

func (s *PGStore) CreateCalendar(ctx context.Context, c *scheduling.Calendar) error {
	rec := scheduling.Record(c.Location)
	q := `INSERT INTO calendars
	      (id, business_id, owner_id, name, appointment_type, location_kind, location_details, virtual_provider,
	       duration_minutes, buffer_before_minutes, buffer_after_minutes, time_zone, booking_window_days,
	       min_notice_minutes, require_confirmation, external_sync_enabled, share_id, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`
	_, err := s.DB.Exec(ctx, q,
		c.ID, c.BusinessID, c.OwnerID, c.Name, c.AppointmentType, rec.Kind, rec.Details, rec.VirtualProvider,
		c.DurationMinutes, c.BufferBeforeMinutes, c.BufferAfterMinutes, c.TimeZone, c.BookingWindowDays,
		c.MinNoticeMinutes, c.RequireConfirmation, c.ExternalSyncEnabled, c.ShareID, c.CreatedAt, c.UpdatedAt)
	return classify("create calendar", err)
}

func (s *PGStore) GetCalendar(ctx context.Context, businessID, calendarID string) (*scheduling.Calendar, error) {
	q := `SELECT ` + calendarColumns + ` FROM calendars WHERE id=$1 AND business_id=$2`
	c, err := scanCalendar(s.DB.QueryRow(ctx, q, calendarID, businessID))
	if notFound(err) {
		return nil, &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	return c, classify("get calendar", err)
}

func (s *PGStore) GetCalendarByShareID(ctx context.Context, shareID string) (*scheduling.Calendar, error) {
	q := `SELECT ` + calendarColumns + ` FROM calendars WHERE share_id=$1`
	c, err := scanCalendar(s.DB.QueryRow(ctx, q, shareID))
	if notFound(err) {
		return nil, &scheduling.NotFoundError{Resource: "calendar", ID: shareID}
	}
	return c, classify("get calendar by share id", err)
}

func (s *PGStore) ListCalendars(ctx context.Context, businessID string) ([]scheduling.Calendar, error) {
	q := `SELECT ` + calendarColumns + ` FROM calendars WHERE business_id=$1 ORDER BY created_at, id`
	rows, err := s.DB.Query(ctx, q, businessID)
	if err != nil {
		return nil, classify("list calendars", err)
	}
	defer rows.Close()

	out := []scheduling.Calendar{}
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, classify("list calendars", err)
		}
		out = append(out, *c)
	}
	return out, classify("list calendars", rows.Err())
}

func (s *PGStore) UpdateCalendar(ctx context.Context, c *scheduling.Calendar) error {
	rec := scheduling.Record(c.Location)
	q := `UPDATE calendars SET
	        name=$3, appointment_type=$4, location_kind=$5, location_details=$6, virtual_provider=$7,
	        duration_minutes=$8, buffer_before_minutes=$9, buffer_after_minutes=$10, time_zone=$11,
	        booking_window_days=$12, min_notice_minutes=$13, require_confirmation=$14,
	        external_sync_enabled=$15, updated_at=$16
	      WHERE id=$1 AND business_id=$2`
	tag, err := s.DB.Exec(ctx, q, c.ID, c.BusinessID,
		c.Name, c.AppointmentType, rec.Kind, rec.Details, rec.VirtualProvider,
		c.DurationMinutes, c.BufferBeforeMinutes, c.BufferAfterMinutes, c.TimeZone,
		c.BookingWindowDays, c.MinNoticeMinutes, c.RequireConfirmation,
		c.ExternalSyncEnabled, c.UpdatedAt)
	if err != nil {
		return classify("update calendar", err)
	}
	if tag.RowsAffected() == 0 {
		return &scheduling.NotFoundError{Resource: "calendar", ID: c.ID}
	}
	return nil
}

func (s *PGStore) DeleteCalendar(ctx context.Context, businessID, calendarID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM calendars WHERE id=$1 AND business_id=$2`, calendarID, businessID)
	if notFound(err) || (err == nil && tag.RowsAffected() == 0) {
		return &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	return classify("delete calendar", err)
}

func (s *PGStore) ListRules(ctx context.Context, calendarID string) ([]scheduling.AvailabilityRule, error) {
	q := `SELECT id::text, calendar_id::text, rule_type, day_of_week, specific_date::text,
	             start_minutes, end_minutes, is_unavailable
	      FROM availability_rules WHERE calendar_id=$1 ORDER BY id`
	rows, err := s.DB.Query(ctx, q, calendarID)
	if err != nil {
		return nil, classify("list rules", err)
	}
	defer rows.Close()

	out := []scheduling.AvailabilityRule{}
	for rows.Next() {
		var (
			r   scheduling.AvailabilityRule
			dow *int16
		)
		if err := rows.Scan(&r.ID, &r.CalendarID, &r.Type, &dow, &r.SpecificDate,
			&r.StartMinutes, &r.EndMinutes, &r.IsUnavailable); err != nil {
			return nil, classify("list rules", err)
		}
		if dow != nil {
			d := int(*dow)
			r.DayOfWeek = &d
		}
		out = append(out, r)
	}
	return out, classify("list rules", rows.Err())
}

func (s *PGStore) ReplaceRules(ctx context.Context, calendarID string, rules []scheduling.AvailabilityRule) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return classify("replace rules", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE calendar_id=$1`, calendarID); err != nil {
		return classify("replace rules", err)
	}
	batch := &pgx.Batch{}
	for _, r := range rules {
		batch.Queue(`INSERT INTO availability_rules
		             (calendar_id, rule_type, day_of_week, specific_date, start_minutes, end_minutes, is_unavailable)
		             VALUES ($1,$2,$3,$4::date,$5,$6,$7)`,
			calendarID, r.Type, r.DayOfWeek, r.SpecificDate, r.StartMinutes, r.EndMinutes, r.IsUnavailable)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return classify("replace rules", err)
		}
	}
	return classify("replace rules", tx.Commit(ctx))
}

const bookingColumns = `id::text, calendar_id::text, guest_name, guest_email, guest_time_zone, guest_notes,
	start_at, end_at, status, meeting_url, created_at, updated_at`

func scanBooking(row pgx.Row) (*scheduling.Booking, error) {
	var b scheduling.Booking
	err := row.Scan(&b.ID, &b.CalendarID, &b.GuestName, &b.GuestEmail, &b.GuestTimeZone, &b.GuestNotes,
		&b.Start, &b.End, &b.Status, &b.MeetingURL, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Start = b.Start.UTC()
	b.End = b.End.UTC()
	return &b, nil
}

func listBookings(ctx context.Context, db querier, calendarID string, f BookingFilter) ([]scheduling.Booking, error) {
	var (
		where = []string{"calendar_id=$1"}
		args  = []any{calendarID}
	)
	if !f.From.IsZero() {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("end_at > $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("start_at < $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + strings.Join(where, " AND ") + ` ORDER BY start_at, id`

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, classify("list bookings", err)
	}
	defer rows.Close()

	out := []scheduling.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, classify("list bookings", err)
		}
		out = append(out, *b)
	}
	return out, classify("list bookings", rows.Err())
}

func (s *PGStore) ListBookings(ctx context.Context, calendarID string, f BookingFilter) ([]scheduling.Booking, error) {
	return listBookings(ctx, s.DB, calendarID, f)
}

// WithCalendarLock holds a row lock on the calendar for the duration of fn.
func (s *PGStore) WithCalendarLock(ctx context.Context, calendarID string, fn func(tx BookingTx) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return classify("begin", err)
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `SELECT id::text FROM calendars WHERE id=$1 FOR UPDATE`, calendarID).Scan(&id)
	if notFound(err) {
		return &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	if err != nil {
		return classify("lock calendar", err)
	}
	if err := fn(&pgBookingTx{tx: tx}); err != nil {
		return classify("booking tx", err)
	}
	return classify("commit", tx.Commit(ctx))
}

type pgBookingTx struct {
	tx pgx.Tx
}

func (t *pgBookingTx) ListBookings(ctx context.Context, calendarID string, f BookingFilter) ([]scheduling.Booking, error) {
	return listBookings(ctx, t.tx, calendarID, f)
}

func (t *pgBookingTx) GetBooking(ctx context.Context, calendarID, bookingID string) (*scheduling.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1 AND calendar_id=$2`
	b, err := scanBooking(t.tx.QueryRow(ctx, q, bookingID, calendarID))
	if notFound(err) {
		return nil, &scheduling.NotFoundError{Resource: "booking", ID: bookingID}
	}
	return b, classify("get booking", err)
}

func (t *pgBookingTx) InsertBooking(ctx context.Context, b *scheduling.Booking) error {
	q := `INSERT INTO bookings
	      (id, calendar_id, guest_name, guest_email, guest_time_zone, guest_notes,
	       start_at, end_at, status, meeting_url, created_at, updated_at)
	      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := t.tx.Exec(ctx, q, b.ID, b.CalendarID, b.GuestName, b.GuestEmail, b.GuestTimeZone, b.GuestNotes,
		b.Start, b.End, string(b.Status), b.MeetingURL, b.CreatedAt, b.UpdatedAt)
	return classify("insert booking", err)
}

func (t *pgBookingTx) UpdateBookingStatus(ctx context.Context, bookingID string, status scheduling.Status, reason string, at time.Time) error {
	q := `UPDATE bookings SET status=$2, status_reason=$3, updated_at=$4 WHERE id=$1`
	tag, err := t.tx.Exec(ctx, q, bookingID, string(status), reason, at)
	if err != nil {
		return classify("update booking status", err)
	}
	if tag.RowsAffected() == 0 {
		return &scheduling.NotFoundError{Resource: "booking", ID: bookingID}
	}
	return nil
}

func (s *PGStore) SaveGoogleToken(ctx context.Context, calendarID string, token []byte) error {
	tag, err := s.DB.Exec(ctx, `UPDATE calendars SET google_token=$2::jsonb, updated_at=now() WHERE id=$1`, calendarID, string(token))
	if err != nil {
		return classify("save google token", err)
	}
	if tag.RowsAffected() == 0 {
		return &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	return nil
}

func (s *PGStore) GoogleToken(ctx context.Context, calendarID string) ([]byte, error) {
	var tok *string
	err := s.DB.QueryRow(ctx, `SELECT google_token::text FROM calendars WHERE id=$1`, calendarID).Scan(&tok)
	if notFound(err) {
		return nil, &scheduling.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	if err != nil {
		return nil, classify("google token", err)
	}
	if tok == nil {
		return nil, &scheduling.NotFoundError{Resource: "google token", ID: calendarID}
	}
	return []byte(*tok), nil
}
