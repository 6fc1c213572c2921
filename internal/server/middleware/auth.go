package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/halcyon/model-bridge-api/pkg/api"
)

// Auth checks for a valid Bearer token against the statically configured
// key set. An empty key set disables authentication.
func Auth(staticKeys []string) gin.HandlerFunc {
	keys := make(map[string]bool, len(staticKeys))
	for _, k := range staticKeys {
		keys[k] = true
	}

	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope(
				api.NewError(http.StatusUnauthorized, "authentication_error", "Missing Authorization header"),
			))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope(
				api.NewError(http.StatusUnauthorized, "authentication_error", "Invalid Authorization header format"),
			))
			return
		}

		if !keys[parts[1]] {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.Envelope(
				api.NewError(http.StatusUnauthorized, "authentication_error", "Invalid API key"),
			))
			return
		}

		c.Next()
	}
}
