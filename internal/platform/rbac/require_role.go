package rbac

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"session-auth-service/internal/server/middleware"
	userdomain "session-auth-service/internal/user/domain"
)

var (
	// ErrUnauthenticated means no identity is present in the context.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrPermissionDenied means the caller's role is not among the allowed roles.
	ErrPermissionDenied = errors.New("insufficient role")
)

// RequireRole ensures the caller is authenticated and holds one of roles.
// Returns the caller's user id on success.
func RequireRole(ctx context.Context, roles ...userdomain.Role) (userID string, err error) {
	userID, okUser := middleware.GetUserID(ctx)
	role, okRole := middleware.GetRole(ctx)
	if !okUser || userID == "" || !okRole {
		return "", ErrUnauthenticated
	}
	if !slices.Contains(roles, role) {
		return "", ErrPermissionDenied
	}
	return userID, nil
}

// Require returns a gin middleware that aborts with 401 or 403 unless the
// caller holds one of roles. It must run after middleware.BearerAuth.
func Require(roles ...userdomain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := RequireRole(c.Request.Context(), roles...); err != nil {
			status := http.StatusForbidden
			if errors.Is(err, ErrUnauthenticated) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
