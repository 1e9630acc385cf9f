package api

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

const userIDKey = "userID"

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if id := c.GetString(userIDKey); id != "" {
			fields = append(fields, zap.String("user_id", id))
		}
		log.Info("HTTP Request", fields...)
	}
}

// requireAuth rejects requests without a valid session token
func (h *handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := h.authenticate(c)
		if err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optionalAuth identifies the caller when a token is present
func (h *handler) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, err := h.authenticate(c); err == nil {
			c.Set(userIDKey, userID)
		}
		c.Next()
	}
}

// authenticate reads a Bearer header, or the token query parameter used by websocket clients
func (h *handler) authenticate(c *gin.Context) (string, error) {
	token := c.Query("token")
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", apperrors.NewUnauthenticated("malformed authorization header", nil)
		}
		token = strings.TrimSpace(value)
	}
	if token == "" {
		return "", apperrors.NewUnauthenticated("missing session token", nil)
	}
	return h.Tokens.Parse(token)
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}
