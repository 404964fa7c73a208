package server

import (
	"time"

	"fitclass/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLoggingMiddleware logs each request once it has been served. The
// tenant middleware runs inside it, so the scope attributes it attaches to the
// request logger are picked up here.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		log := logger.FromContext(c.Request.Context())
		log.Info("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)
	}
}
