package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/metrics"
)

// Metrics returns middleware that captures request metrics using the provided service.
func Metrics(svc *metrics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		svc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
