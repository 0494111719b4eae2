// internal/middleware/request_id.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const (
	requestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID keeps a client supplied X-Request-ID or assigns a ULID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = ulid.Make().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
