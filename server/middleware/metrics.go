package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/livescribe/observability"
)

// RequestMetrics returns middleware that records request counts,
// durations, and in-flight gauge via the given metrics. The route
// template is used as the label where one matched, so path parameters
// do not explode cardinality.
func RequestMetrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		m.RecordRequestStart(ctx)
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.RecordRequestEnd(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
