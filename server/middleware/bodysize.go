package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillsenselab/livescribe/util"
)

const defaultMaxBodySize = 10 * 1024 * 1024 // 10MB

// BodySizeLimit returns middleware that caps the request body at the
// given size string (e.g. "10MB", "512KB"). Reads past the limit fail
// and close the connection.
func BodySizeLimit(maxSize string) gin.HandlerFunc {
	size := util.ParseSize(maxSize, defaultMaxBodySize)
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, size)
		c.Next()
	}
}
