package app

import (
	"github.com/gin-gonic/gin"
)

// RouterDeps carries the collaborators the HTTP surface needs beyond App.
type RouterDeps struct {
	Auth    Authenticator
	Google  *GoogleSync
	Limiter gin.HandlerFunc
}

// Router wires every route. The error handler wraps all groups so that
// handlers only ever call abortWithError.
func (a *App) Router(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), a.ErrorHandler())

	limiter := deps.Limiter
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}

	router.GET("/healthz", a.HealthHandler)

	// OAuth2 callback (must be outside auth middleware)
	router.GET("/oauth2callback", deps.Google.CallbackHandler)

	public := router.Group("/public/calendars/:share_id")
	{
		public.GET("", a.PublicCalendarHandler)
		public.GET("/availability", a.PublicAvailabilityHandler)
		public.POST("/bookings", limiter, a.PublicBookingHandler)
		public.GET("/qr.png", a.ShareQRHandler)
	}

	api := router.Group("/api", deps.Auth.Middleware())
	{
		calendars := api.Group("/calendars")
		{
			calendars.POST("", a.CreateCalendarHandler)
			calendars.GET("", a.ListCalendarsHandler)
			calendars.GET("/:id", a.GetCalendarHandler)
			calendars.PATCH("/:id", a.UpdateCalendarHandler)
			calendars.DELETE("/:id", a.DeleteCalendarHandler)

			calendars.GET("/:id/rules", a.ListRulesHandler)
			calendars.PUT("/:id/rules", a.ReplaceRulesHandler)
			calendars.GET("/:id/availability", a.AvailabilityHandler)

			calendars.GET("/:id/bookings", a.ListBookingsHandler)
			calendars.POST("/:id/bookings", a.CreateBookingHandler)
			calendars.PATCH("/:id/bookings/:booking_id", a.UpdateBookingStatusHandler)

			calendars.GET("/:id/google/auth", deps.Google.AuthHandler)
		}
	}
	return router
}
