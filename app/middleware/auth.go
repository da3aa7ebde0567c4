package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"loanpilot/pkg/config"
	"loanpilot/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware guards mutating release endpoints with a static API key.
// The key is accepted as a bearer token or via the X-API-Key header.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := config.GlobalConfig.Server.APIKey

		// No key configured means the deployment API is open (dev setups)
		if expected == "" {
			logger.DebugCtx(c.Request.Context(), "API key not configured, skipping auth")
			c.Next()
			return
		}

		presented := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if presented == "" {
			presented = c.GetHeader("X-API-Key")
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
			logger.WarnCtx(c.Request.Context(), "unauthorized request to %s, invalid API key", c.Request.URL.Path)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
