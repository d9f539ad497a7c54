package middleware

import (
	"log/slog"
	"strings"
	"time"

	"care-portal-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// Paths to skip logging.
var skipLoggingPaths = []string{
	"/health",
	"/favicon.ico",
}

// RequestLogging logs HTTP requests with method, path, status, and duration.
func RequestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, prefix := range skipLoggingPaths {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := GetUserIDFromContext(c); ok {
			attrs = append(attrs, "user_id", userID)
		}

		switch {
		case status >= 500:
			slog.ErrorContext(c.Request.Context(), "http request", attrs...)
		case status >= 400:
			slog.WarnContext(c.Request.Context(), "http request", attrs...)
		default:
			slog.InfoContext(c.Request.Context(), "http request", attrs...)
		}
	}
}

// ExposeErrors lets 500 responses carry raw error text. Installed outside
// production only.
func ExposeErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(utils.ExposeErrorsKey, true)
		c.Next()
	}
}
