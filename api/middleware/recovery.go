package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/halftunes/pkg/logger"
)

// Recovery returns a gin middleware for panic recovery.
// Panics are also written to the error category when ml is not nil.
func Recovery(log *zap.Logger, ml *logger.MultiLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []zap.Field{
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				}
				log.Error("Panic recovered", fields...)
				if ml != nil {
					ml.LogAppError("Panic recovered", fields...)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
