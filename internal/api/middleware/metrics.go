package middleware

import (
	"strconv"
	"time"

	"fleet-manager/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency per matched route. Unmatched
// paths share one label so probes cannot inflate cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
