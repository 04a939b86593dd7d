package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baselineanalytics/portal/pkg/metrics"
)

// unmatchedRoute labels requests that hit no registered route, so probing
// clients cannot grow the path label set without bound.
const unmatchedRoute = "unmatched"

// Metrics records latency by route template and tracks in-flight requests.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.InFlightRequests.Inc()
		start := time.Now()
		defer metrics.InFlightRequests.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		metrics.APILatency.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
