package middlewares

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID     = "X-Request-ID"
	ContextKeyRequestID = "requestID"
	maxRequestIDLength  = 64
)

// RequestID tags every request with an id, reusing the caller's X-Request-ID when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)
		slog.Debug("request received", slog.String("requestID", requestID), slog.String("method", c.Request.Method), slog.String("path", c.Request.URL.Path))
		c.Next()
	}
}
