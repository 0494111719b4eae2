// internal/middleware/metrics_middleware.go
package middleware

import (
	"strconv"
	"time"

	"fieldcrm-service/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request counts and latency keyed by the route
// template, so ids in paths do not explode label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(
			route,
			c.Request.Method,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		metrics.HTTPRequestDuration.WithLabelValues(
			route,
			c.Request.Method,
		).Observe(time.Since(start).Seconds())
	}
}
