package middlewares

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const HeaderAPIKey = "Api-Key"

func HasValidAPIKey(validKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		keysInHeader := c.Request.Header.Values(HeaderAPIKey)
		if len(keysInHeader) < 1 {
			slog.Error("A valid API key missing", slog.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "A valid API key missing"})
			return
		}

		for _, k := range keysInHeader {
			for _, vk := range validKeys {
				if vk != "" && subtle.ConstantTimeCompare([]byte(k), []byte(vk)) == 1 {
					c.Next()
					return
				}
			}
		}

		// If no keys matched:
		slog.Error("A valid API key missing", slog.String("path", c.Request.URL.Path))
		slog.Debug("Received API keys", slog.String("receivedKeys", strings.Join(keysInHeader, ",")))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "A valid API key missing"})
	}
}
