package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"hrms-backend/internal/core/metrics"
)

func Metrics(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTP(path, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
