package middleware

import (
	"strconv"
	"time"

	"github.com/SscSPs/expense_reimbursement_app/internal/metrics"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains paths that are not recorded in HTTP metrics
var pathsToSkip = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// MetricsMiddleware records request counts and latency per matched route.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// Route templates keep label cardinality bounded.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
