package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"appointment-service/internal/scheduling"
)

// bindJSON reports binding failures as validation errors.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		abortWithError(c, scheduling.Invalid("body", err.Error()))
		return false
	}
	return true
}

func queryTime(c *gin.Context, key string) (time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		abortWithError(c, scheduling.Invalid(key, "must be an RFC 3339 timestamp"))
		return time.Time{}, false
	}
	return t.UTC(), true
}

func queryRange(c *gin.Context) (AvailabilityRange, bool) {
	from, ok := queryTime(c, "from")
	if !ok {
		return AvailabilityRange{}, false
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return AvailabilityRange{}, false
	}
	return AvailabilityRange{From: from, To: to}, true
}

// POST /api/calendars
func (a *App) CreateCalendarHandler(c *gin.Context) {
	var in CalendarInput
	if !bindJSON(c, &in) {
		return
	}
	cal, err := a.CreateCalendar(c.Request.Context(), principal(c), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cal)
}

// GET /api/calendars
func (a *App) ListCalendarsHandler(c *gin.Context) {
	cals, err := a.ListCalendars(c.Request.Context(), principal(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cals)
}

// GET /api/calendars/:id
func (a *App) GetCalendarHandler(c *gin.Context) {
	cal, err := a.GetCalendar(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// PATCH /api/calendars/:id
func (a *App) UpdateCalendarHandler(c *gin.Context) {
	var in CalendarInput
	if !bindJSON(c, &in) {
		return
	}
	cal, err := a.UpdateCalendar(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

// DELETE /api/calendars/:id
func (a *App) DeleteCalendarHandler(c *gin.Context) {
	if err := a.DeleteCalendar(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/calendars/:id/rules
func (a *App) ListRulesHandler(c *gin.Context) {
	rules, err := a.ListRules(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// PUT /api/calendars/:id/rules
// The body is the complete rule set; it replaces whatever was stored.
func (a *App) ReplaceRulesHandler(c *gin.Context) {
	var rules []scheduling.AvailabilityRule
	if !bindJSON(c, &rules) {
		return
	}
	saved, err := a.ReplaceAvailabilityRules(c.Request.Context(), principal(c), c.Param("id"), rules)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// GET /api/calendars/:id/availability?from=RFC3339&to=RFC3339
func (a *App) AvailabilityHandler(c *gin.Context) {
	r, ok := queryRange(c)
	if !ok {
		return
	}
	w, err := a.ListAvailability(c.Request.Context(), principal(c), c.Param("id"), r)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// GET /api/calendars/:id/bookings?from&to&status=pending,scheduled
func (a *App) ListBookingsHandler(c *gin.Context) {
	r, ok := queryRange(c)
	if !ok {
		return
	}
	f := BookingFilter{From: r.From, To: r.To}
	if s := c.Query("status"); s != "" {
		for _, part := range strings.Split(s, ",") {
			st, err := scheduling.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				abortWithError(c, err)
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	bookings, err := a.ListBookings(c.Request.Context(), principal(c), c.Param("id"), f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// POST /api/calendars/:id/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	var in BookingInput
	if !bindJSON(c, &in) {
		return
	}
	b, err := a.CreateBooking(c.Request.Context(), principal(c), c.Param("id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// PATCH /api/calendars/:id/bookings/:booking_id
func (a *App) UpdateBookingStatusHandler(c *gin.Context) {
	var in StatusInput
	if !bindJSON(c, &in) {
		return
	}
	st, err := scheduling.ParseStatus(in.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	b, err := a.UpdateBookingStatus(c.Request.Context(), principal(c), c.Param("id"), c.Param("booking_id"), st, in.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /public/calendars/:share_id
func (a *App) PublicCalendarHandler(c *gin.Context) {
	v, err := a.GetPublicCalendar(c.Request.Context(), c.Param("share_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /public/calendars/:share_id/availability
func (a *App) PublicAvailabilityHandler(c *gin.Context) {
	r, ok := queryRange(c)
	if !ok {
		return
	}
	w, err := a.ListPublicAvailability(c.Request.Context(), c.Param("share_id"), r)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// POST /public/calendars/:share_id/bookings
func (a *App) PublicBookingHandler(c *gin.Context) {
	var in BookingInput
	if !bindJSON(c, &in) {
		return
	}
	b, err := a.CreatePublicBooking(c.Request.Context(), c.Param("share_id"), in)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /healthz
func (a *App) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
