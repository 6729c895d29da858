package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDKey = "request_id"

// RequestID reuses an inbound X-Request-ID or mints one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Logger writes one structured line per request. Server errors log at warn
// level with the errors the handlers attached; run-scoped routes carry the
// run id.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if runID := c.Param("id"); runID != "" {
			attrs = append(attrs, "run_id", runID)
		}
		if c.Writer.Status() >= 500 {
			if len(c.Errors) > 0 {
				attrs = append(attrs, "errors", c.Errors.String())
			}
			slog.Warn("http request", attrs...)
			return
		}
		slog.Info("http request", attrs...)
	}
}

// Recovery turns handler panics into a 500 response.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
