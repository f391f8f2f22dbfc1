package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"usdc-bridge.backend/pkg/logger"
)

// LoggerMiddleware logs each request with the operator and idempotency replay when present
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		var extra []zap.Field
		if username := c.GetString(UsernameKey); username != "" {
			extra = append(extra, zap.String("operator", username))
		}
		if c.Writer.Header().Get(idempotencyHitHeader) == "true" {
			extra = append(extra, zap.Bool("idempotency_hit", true))
		}
		if len(c.Errors) > 0 {
			extra = append(extra, zap.String("errors", c.Errors.String()))
		}

		// request id is already on the request context
		logger.LogRequest(c.Request.Context(), c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP(), extra...)
	}
}
