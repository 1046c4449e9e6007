package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/livescribe/logger"
)

// RequestLogger returns middleware that logs every request with method,
// path, status, and duration. Level follows the status code: 5xx at
// error, 4xx at warn, the rest at debug. Health probes are skipped.
func RequestLogger() gin.HandlerFunc {
	log := logger.Get("http")
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		fields := logger.Fields(
			"method", c.Request.Method,
			"path", path,
			logger.FieldStatus, status,
			logger.FieldDuration, time.Since(start).Milliseconds(),
			"client", c.ClientIP(),
		)
		if id := c.GetString("request_id"); id != "" {
			fields[logger.FieldRequestID] = id
		}

		switch {
		case status >= 500:
			log.Error("request completed", fields)
		case status >= 400:
			log.Warn("request completed", fields)
		default:
			log.Debug("request completed", fields)
		}
	}
}
