package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/jwt"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
)

const (
	ContextUserKey   = "user"
	ContextUserIDKey = "userID"
)

// UserLookup resolves the user behind a validated token.
type UserLookup interface {
	GetUserByID(ctx context.Context, userID string) (*User, error)
}

// NewAuthMiddleware creates a Gin middleware for JWT authentication. The role
// is taken from the stored user so role changes apply without a new token.
func NewAuthMiddleware(users UserLookup, cfg *jwt.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required", "AUTH_REQUIRED")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			response.Unauthorized(c, "Invalid authorization format", "INVALID_AUTH_FORMAT")
			c.Abort()
			return
		}

		claims, err := jwt.ValidateToken(parts[1], cfg)
		if err != nil {
			response.Unauthorized(c, "Invalid or expired token", "INVALID_TOKEN")
			c.Abort()
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if errors.Is(err, ErrUserNotFound) {
			response.Unauthorized(c, "User not found", "USER_NOT_FOUND")
			c.Abort()
			return
		}
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		if !user.IsActive {
			response.Forbidden(c, "Account is deactivated", "ACCOUNT_DISABLED")
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID.Hex())
		c.Next()
	}
}

// RequireRoles admits only callers holding one of the roles. It must run
// after the auth middleware.
func RequireRoles(roles ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
			c.Abort()
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		response.AuthorizationError(c, "Access denied")
		c.Abort()
	}
}

// CurrentUser returns the authenticated user stored by the middleware.
func CurrentUser(c *gin.Context) (*User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*User)
	return user, ok && user != nil
}

// CurrentPrincipal is CurrentUser reduced to its access-control view.
func CurrentPrincipal(c *gin.Context) (access.Principal, bool) {
	user, ok := CurrentUser(c)
	if !ok {
		return access.Principal{}, false
	}
	return user.Principal(), true
}

// NewOptionalAuthMiddleware attaches the caller when a valid token is sent
// and lets anonymous requests through untouched.
func NewOptionalAuthMiddleware(users UserLookup, cfg *jwt.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.Next()
			return
		}

		claims, err := jwt.ValidateToken(parts[1], cfg)
		if err == nil {
			user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
			if err == nil && user.IsActive {
				c.Set(ContextUserKey, user)
				c.Set(ContextUserIDKey, user.ID.Hex())
			}
		}
		c.Next()
	}
}
