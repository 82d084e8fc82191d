// Package middleware holds the gin middleware shared by every route group.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/ai-humanizer/internal/auth"
	"github.com/01moynul/ai-humanizer/internal/logger"
	"github.com/01moynul/ai-humanizer/internal/models"
	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey holds the caller's id (int64) once AuthMiddleware has run.
	UserIDKey = "userID"
	// UserKey holds the caller's *models.User.
	UserKey = "user"
	// TokenKey holds the raw bearer token, needed to sign out.
	TokenKey = "token"
)

// AuthMiddleware resolves the bearer token to a user through the provider.
func AuthMiddleware(provider auth.Provider, log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return func(c *gin.Context) {
		// 1. Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid token format (must be Bearer)")
			return
		}
		token := strings.TrimSpace(parts[1])

		// 2. Resolve the session
		user, err := provider.CurrentUser(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrAccountSuspended):
			abort(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", "Your account is suspended")
			return
		case errors.Is(err, auth.ErrInvalidToken):
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Invalid or expired token")
			return
		default:
			log.Error("Failed to resolve session", map[string]interface{}{"error": err.Error()})
			abort(c, http.StatusInternalServerError, "INTERNAL", "Failed to verify session")
			return
		}

		// 3. Success
		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", "User not found in context (AuthMiddleware must run first)")
			return
		}
		if user.Role != models.RoleAdmin {
			abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: Admin role required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user AuthMiddleware stored on the context.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	raw, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := raw.(*models.User)
	return user, ok && user != nil
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}
