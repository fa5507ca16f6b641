package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"campus-planner/pkg/metrics"
)

// Metrics 记录请求耗时与次数；path 使用路由模板，避免标签基数失控
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
