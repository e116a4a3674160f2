package middleware

import (
	"strconv"
	"time"

	"mindcascade/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs each request through the structured logger and stores a
// request-scoped logger in the request context.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := logger.With("method", c.Request.Method, "path", c.Request.URL.Path)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), l))

		c.Next()

		if id, ok := SessionID(c); ok {
			l = l.With("session_id", id)
		}
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		args := []any{"status", status, "duration_ms", time.Since(start).Milliseconds(), "ip", c.ClientIP()}
		switch {
		case status >= 500:
			l.Error("request", args...)
		case status >= 400:
			l.Warn("request", args...)
		default:
			l.Debug("request", args...)
		}
	}
}
