package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"appointment-service/internal/scheduling"
)

var ErrRateLimited = errors.New("too many requests")

type errorBody struct {
	Success bool     `json:"success"`
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Code    []string `json:"code,omitempty"`
}

// errorStatus is checked in order; the first match wins.
var errorStatus = []struct {
	err    error
	status int
}{
	{scheduling.ErrValidation, http.StatusBadRequest},
	{scheduling.ErrConflict, http.StatusConflict},
	{scheduling.ErrInvalidTransition, http.StatusConflict},
	{scheduling.ErrNotFound, http.StatusNotFound},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrInvalidToken, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrGoogleNotConfigured, http.StatusServiceUnavailable},
	{scheduling.ErrStorage, http.StatusInternalServerError},
}

// errorCodes are the stable machine codes returned alongside the message.
var errorCodes = []struct {
	err  error
	code string
}{
	{scheduling.ErrSlotTaken, "slot_taken"},
	{scheduling.ErrInsideNotice, "inside_notice"},
	{scheduling.ErrStartInPast, "start_in_past"},
	{scheduling.ErrOutsideWindow, "outside_window"},
	{scheduling.ErrOutsideAvailability, "outside_availability"},
	{scheduling.ErrValidation, "validation"},
	{scheduling.ErrConflict, "conflict"},
	{scheduling.ErrInvalidTransition, "invalid_transition"},
	{scheduling.ErrNotFound, "not_found"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidToken, "invalid_token"},
	{ErrForbidden, "forbidden"},
	{ErrRateLimited, "rate_limited"},
	{ErrGoogleNotConfigured, "google_not_configured"},
}

func StatusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

func codesFor(err error) []string {
	var codes []string
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			codes = append(codes, e.code)
		}
	}
	return codes
}

// ErrorHandler renders the last error attached to the context as JSON.
func (a *App) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		status := StatusFor(err)
		msg := err.Error()

		if status >= 500 {
			a.Log.Error("Request failed with server error",
				"error", err,
				"status", status,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			msg = http.StatusText(status)
		} else {
			a.Log.Warn("Request failed with client error",
				"error", err,
				"status", status,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
		}

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(status, errorBody{
				Success: false,
				Status:  "error",
				Message: msg,
				Code:    codesFor(err),
			})
		}
	}
}

// abortWithError hands err to ErrorHandler and stops the chain.
func abortWithError(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
	c.Status(StatusFor(err))
}
