package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 512

// baseURL prefers the configured public URL and falls back to the request host.
func (a *App) baseURL(c *gin.Context) string {
	if a.PublicBaseURL != "" {
		return a.PublicBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}

// ShareURL is the public booking page of a share link.
func (a *App) ShareURL(c *gin.Context, shareID string) string {
	return a.baseURL(c) + "/public/calendars/" + shareID
}

// GET /public/calendars/:share_id/qr.png
func (a *App) ShareQRHandler(c *gin.Context) {
	cal, err := a.Store.GetCalendarByShareID(c.Request.Context(), c.Param("share_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	url := a.ShareURL(c, cal.ShareID)

	// Generation takes milliseconds; no caching.
	png, err := qrcode.Encode(url, qrcode.Medium, qrImageSize)
	if err != nil {
		abortWithError(c, fmt.Errorf("generate qr code: %w", err))
		return
	}
	a.Log.Debug("Generated QR code", "url", url)
	c.Data(http.StatusOK, "image/png", png)
}
