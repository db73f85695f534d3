package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// quietPaths are polled by probes and scrapers and are not logged
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// Logger writes one access record per request. Server errors log at ERROR,
// client errors at WARN and the rest at INFO.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, quiet := quietPaths[c.Request.URL.Path]; quiet {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}
		if correlationID := GetCorrelationID(c); correlationID != "" {
			attrs = append(attrs, "correlation_id", correlationID)
		}
		if accountID := GetAccountID(c); accountID != "" {
			attrs = append(attrs, "account_id", accountID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", attrs...)
		case status >= 400:
			logger.Warn("HTTP request", attrs...)
		default:
			logger.Info("HTTP request", attrs...)
		}
	}
}
