// internal/middleware/helpers.go
package middleware

import (
	"fieldcrm-service/internal/service/access"

	"github.com/gin-gonic/gin"
)

// GetCaller returns the caller stored by Auth.
func GetCaller(c *gin.Context) (access.Caller, bool) {
	v, exists := c.Get(callerKey)
	if !exists {
		return access.Caller{}, false
	}
	caller, ok := v.(access.Caller)
	return caller, ok
}

// SetCaller is used by tests and internal tooling that authenticate elsewhere.
func SetCaller(c *gin.Context, caller access.Caller) {
	c.Set(callerKey, caller)
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
