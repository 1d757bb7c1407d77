package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which the authenticated identity is stored.
const (
	ctxUserID = "userID"
	ctxEmail  = "email"
)

// requireAuth verifies the bearer access token and attaches the subject to
// the request context. Every protected route passes through here; a handler
// behind it never runs without a verified identity.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization header required"})
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid authorization header"})
			return
		}

		claims, err := h.tokens.VerifyAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Next()
	}
}

// callerID returns the authenticated user id set by requireAuth.
func callerID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
