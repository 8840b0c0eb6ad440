package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"stackwarden/services"
)

// Metrics records request count, duration and error count for every API
// route, keyed by the route template rather than the raw URL.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		services.RecordHTTPRequest(path, c.Writer.Status(), time.Since(start).Seconds())
	}
}
