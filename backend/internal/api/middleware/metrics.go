package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wedly/backend/pkg/metrics"
)

// Metrics 按路由模板记录请求耗时，未匹配路由归入 "unmatched"
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
