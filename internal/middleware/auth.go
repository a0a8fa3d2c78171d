package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/confide/internal/auth"
	apperrors "github.com/lalith-99/confide/internal/errors"
)

// ContextKeyUserID is where AuthMiddleware stores the caller id.
const ContextKeyUserID = "user_id"

// AccessTokenParam carries the token for WebSocket upgrades, where
// browsers cannot set an Authorization header.
const AccessTokenParam = "access_token"

// AuthMiddleware rejects the request with 401 unless it carries a valid
// bearer token, then stores the caller id for handlers.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthenticated(c, "missing or malformed authorization, expected: Bearer <token>")
			return
		}

		claims, err := auth.ParseToken(tokenString, secret)
		if err != nil {
			abortUnauthenticated(c, "invalid or expired token")
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		if q := c.Query(AccessTokenParam); q != "" {
			return q, true
		}
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": msg,
		"code":  apperrors.ErrUnauthenticated,
	})
}

// GetUserID returns the caller id, or uuid.Nil outside AuthMiddleware.
func GetUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get(ContextKeyUserID)
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
