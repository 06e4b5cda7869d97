package middlewares

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	jwthandling "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/jwt-handling"
)

const (
	HeaderAuthorization = "Authorization"

	ContextKeyValidatedToken = "validatedToken"
)

// GetAndValidateAdminJWT extracts the bearer token from the request and validates it
func GetAndValidateAdminJWT(tokenSignKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			slog.Warn("no Authorization token found", slog.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		parsedToken, ok, err := jwthandling.ValidateAdminToken(token, tokenSignKey)
		if err != nil || !ok {
			errMsg := "invalid token"
			if err != nil {
				errMsg = err.Error()
			}
			slog.Warn("token validation failed", slog.String("error", errMsg), slog.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "error during token validation"})
			return
		}
		c.Set(ContextKeyValidatedToken, parsedToken)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	tokens, ok := c.Request.Header[HeaderAuthorization]
	if !ok || len(tokens) < 1 {
		return "", errors.New("no Authorization header found")
	}
	token := strings.TrimPrefix(tokens[0], "Bearer ")
	if len(token) == 0 {
		return "", errors.New("no token found in Authorization header")
	}
	return token, nil
}
