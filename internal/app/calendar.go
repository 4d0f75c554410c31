package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"appointment-service/internal/scheduling"
)

var ErrGoogleNotConfigured = errors.New("google calendar sync is not configured")

const (
	googleStateAudience = "google-oauth"
	googleStateTTL      = 10 * time.Minute
	googleCalendarID    = "primary"
)

// GoogleSync mirrors scheduled bookings into the calendar owner's Google
// Calendar. Each booking maps to the event id derived from its own id, so
// replays insert or delete the same event.
type GoogleSync struct {
	Config *oauth2.Config
	Store  Store
	Secret []byte
	Log    *slog.Logger
}

// NewGoogleOAuthConfig returns nil unless all three settings are present.
func NewGoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{calendar.CalendarEventsScope},
		Endpoint:     google.Endpoint,
	}
}

func NewGoogleSync(cfg *oauth2.Config, store Store, secret []byte, logger *slog.Logger) *GoogleSync {
	return &GoogleSync{Config: cfg, Store: store, Secret: secret, Log: logger.With("component", "google")}
}

// GoogleEventID is the event id used for a booking. Google accepts only
// base32hex characters, which the hex form of a uuid satisfies.
func GoogleEventID(bookingID string) string {
	return strings.ToLower(strings.ReplaceAll(bookingID, "-", ""))
}

func (g *GoogleSync) signState(calendarID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   calendarID,
		Audience:  jwt.ClaimStrings{googleStateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(googleStateTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.Secret)
}

func (g *GoogleSync) parseState(state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(*jwt.Token) (interface{}, error) {
		return g.Secret, nil
	}, jwt.WithAudience(googleStateAudience), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: oauth state: %v", ErrInvalidToken, err)
	}
	return claims.Subject, nil
}

// GET /api/calendars/:id/google/auth
func (g *GoogleSync) AuthHandler(c *gin.Context) {
	if g == nil || g.Config == nil {
		abortWithError(c, ErrGoogleNotConfigured)
		return
	}
	p := principal(c)
	if err := p.requireWrite(); err != nil {
		abortWithError(c, err)
		return
	}
	cal, err := g.Store.GetCalendar(c.Request.Context(), p.BusinessID, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	state, err := g.signState(cal.ID)
	if err != nil {
		abortWithError(c, fmt.Errorf("sign oauth state: %w", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"auth_url": g.Config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce),
	})
}

// GET /oauth2callback
func (g *GoogleSync) CallbackHandler(c *gin.Context) {
	if g == nil || g.Config == nil {
		abortWithError(c, ErrGoogleNotConfigured)
		return
	}
	code := c.Query("code")
	if code == "" {
		abortWithError(c, scheduling.Invalid("code", "authorization code required"))
		return
	}
	calendarID, err := g.parseState(c.Query("state"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	ctx := c.Request.Context()
	token, err := g.Config.Exchange(ctx, code)
	if err != nil {
		abortWithError(c, scheduling.Invalid("code", "failed to exchange code for token"))
		return
	}
	if err := g.saveToken(ctx, calendarID, token); err != nil {
		abortWithError(c, err)
		return
	}
	g.Log.Info("Google Calendar connected", "calendar_id", calendarID)
	c.JSON(http.StatusOK, gin.H{"message": "Authorization successful", "calendar_id": calendarID})
}

func (g *GoogleSync) saveToken(ctx context.Context, calendarID string, token *oauth2.Token) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return g.Store.SaveGoogleToken(ctx, calendarID, raw)
}

// service builds a Calendar client for the calendar's stored token,
// persisting the token again when it was refreshed. ok is false when the
// calendar never connected.
func (g *GoogleSync) service(ctx context.Context, calendarID string) (srv *calendar.Service, ok bool, err error) {
	raw, err := g.Store.GoogleToken(ctx, calendarID)
	if errors.Is(err, scheduling.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, false, fmt.Errorf("decode google token: %w", err)
	}
	ts := g.Config.TokenSource(ctx, &token)
	fresh, err := ts.Token()
	if err != nil {
		return nil, false, fmt.Errorf("refresh google token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := g.saveToken(ctx, calendarID, fresh); err != nil {
			g.Log.Warn("Failed to persist refreshed token", "calendar_id", calendarID, "error", err)
		}
	}
	srv, err = calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
	if err != nil {
		return nil, false, fmt.Errorf("create calendar service: %w", err)
	}
	return srv, true, nil
}

// Notify inserts an event when a booking becomes scheduled and deletes it
// when a scheduled booking is cancelled.
func (g *GoogleSync) Notify(ctx context.Context, ev BookingEvent) error {
	if g.Config == nil || !ev.Calendar.ExternalSyncEnabled {
		return nil
	}
	insert := ev.After == scheduling.StatusScheduled
	remove := ev.After == scheduling.StatusCancelled && ev.Before == scheduling.StatusScheduled
	if !insert && !remove {
		return nil
	}

	srv, ok, err := g.service(ctx, ev.Calendar.ID)
	if err != nil {
		return err
	}
	if !ok {
		g.Log.Debug("Calendar not connected, skipping sync", "calendar_id", ev.Calendar.ID)
		return nil
	}

	id := GoogleEventID(ev.Booking.ID)
	if insert {
		_, err = srv.Events.Insert(googleCalendarID, googleEvent(ev, id)).Context(ctx).Do()
		if googleStatus(err) == http.StatusConflict {
			return nil
		}
		return err
	}
	err = srv.Events.Delete(googleCalendarID, id).Context(ctx).Do()
	if s := googleStatus(err); s == http.StatusNotFound || s == http.StatusGone {
		return nil
	}
	return err
}

func googleEvent(ev BookingEvent, id string) *calendar.Event {
	desc := ev.Booking.GuestNotes
	if ev.Booking.MeetingURL != "" {
		desc = strings.TrimSpace(desc + "\n\n" + ev.Booking.MeetingURL)
	}
	return &calendar.Event{
		Id:          id,
		Summary:     fmt.Sprintf("%s: %s", ev.Calendar.Name, ev.Booking.GuestName),
		Description: desc,
		Location:    ev.Location,
		Start: &calendar.EventDateTime{
			DateTime: ev.Booking.Start.Format(time.RFC3339),
			TimeZone: ev.Calendar.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.Booking.End.Format(time.RFC3339),
			TimeZone: ev.Calendar.TimeZone,
		},
		Attendees: []*calendar.EventAttendee{
			{Email: ev.Booking.GuestEmail, DisplayName: ev.Booking.GuestName},
		},
	}
}

func googleStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}
