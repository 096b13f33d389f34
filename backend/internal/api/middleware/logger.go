package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wedly/backend/pkg/logger"
)

// Logger 请求日志中间件（基于 Zap 结构化日志）
// 公开接口路径中的邀请码会被脱敏
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		path := c.Request.URL.Path
		code := c.Param("code")
		if code != "" {
			path = c.FullPath()
		}

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}
		if code != "" {
			fields = append(fields, zap.String("code", logger.MaskCode(code)))
		}
		if weddingID := c.GetString(ContextWeddingID); weddingID != "" {
			fields = append(fields, zap.String("wedding_id", weddingID))
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		if statusCode >= 500 {
			log.Error("请求处理失败", fields...)
		} else if statusCode >= 400 {
			log.Warn("客户端错误", fields...)
		} else {
			log.Info("请求完成", fields...)
		}
	}
}
