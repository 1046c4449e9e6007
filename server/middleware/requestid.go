package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID is the header carrying the request correlation ID.
const HeaderRequestID = "X-Request-Id"

// RequestID propagates an incoming X-Request-Id header or generates a
// fresh one, storing it in the Gin context under "request_id" and
// echoing it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
