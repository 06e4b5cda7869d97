package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	jwthandling "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/jwt-handling"
)

// IsAdminUser has to run after GetAndValidateAdminJWT.
func IsAdminUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenValue, ok := c.Get(ContextKeyValidatedToken)
		if !ok {
			slog.Warn("IsAdminUser: validatedToken not found in context")
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validatedToken not found in context"})
			return
		}
		parsedToken, ok := tokenValue.(*jwthandling.AdminClaims)
		if !ok || !parsedToken.IsAdmin {
			subject := ""
			if parsedToken != nil {
				subject = parsedToken.Subject
			}
			slog.Warn("IsAdminUser Middleware: non admin user tried to access admin endpoint", slog.String("userID", subject))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized access to admin endpoint"})
			return
		}
		c.Next()
	}
}
