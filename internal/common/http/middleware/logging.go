package middleware

import (
	"time"

	appErr "codearena/pkg/errors"
	"codearena/pkg/utils/logger"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request after it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.Error(c.Request.Context(), "http request", fields...)
		case status >= 400:
			logger.Warn(c.Request.Context(), "http request", fields...)
		default:
			logger.Info(c.Request.Context(), "http request", fields...)
		}
	}
}

// Recovery converts a handler panic into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error(c.Request.Context(), "handler panic", zap.Any("panic", recovered), zap.Stack("stack"))
		response.AbortWithErrorCode(c, appErr.InternalServerError, "Internal server error")
	})
}
