package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/livescribe/errors"
	"github.com/skillsenselab/livescribe/logger"
	"github.com/skillsenselab/livescribe/observability"
)

// Recovery returns middleware that recovers from handler panics, logs
// the stack, counts the panic in metrics, and responds with a generic
// 500 body. The panic value is never echoed to the client. metrics may
// be nil.
func Recovery(metrics *observability.Metrics) gin.HandlerFunc {
	log := logger.Get("http")
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				))
				metrics.RecordError(c.Request.Context(), "panic", "http")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errors.Internal(nil).ToResponse())
			}
		}()
		c.Next()
	}
}
