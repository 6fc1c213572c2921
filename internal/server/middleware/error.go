package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/halcyon/model-bridge-api/pkg/api"
	"go.uber.org/zap"
)

// ErrorHandler serializes every error a handler attached to the context
// into the OpenAI-style envelope. Must run after the access logger.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			if apiErr.Log != nil {
				logger.Error("request failed",
					zap.Int("status", apiErr.Status),
					zap.String("type", apiErr.Type),
					zap.Error(apiErr.Log),
				)
			}
			c.JSON(apiErr.Status, api.Envelope(apiErr))
			c.Abort()
			return
		}

		// unknown error shape: catch-all 500 in the same envelope
		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.Envelope(
			api.InternalError("An unexpected error occurred.", err),
		))
		c.Abort()
	}
}
