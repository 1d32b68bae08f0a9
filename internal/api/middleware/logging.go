package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyport.io/keyport/internal/pkg/logger"
	"keyport.io/keyport/internal/pkg/metrics"
)

// AccessLog logs one line per request and records HTTP metrics.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveHTTP(route, c.Request.Method, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("request_id", GetRequestID(c.Request.Context())),
			zap.String("client_ip", c.ClientIP()),
		}
		if user := UserFromContext(c.Request.Context()); user != nil {
			fields = append(fields, zap.Int64("user_id", user.ID))
		}
		if status >= 500 {
			logger.Warn("HTTP request", fields...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}
