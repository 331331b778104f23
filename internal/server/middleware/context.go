package middleware

import (
	"context"

	userdomain "session-auth-service/internal/user/domain"
)

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	emailKey  = contextKey{"email"}
	roleKey   = contextKey{"role"}
)

// WithIdentity returns a context carrying the authenticated user_id, email and role.
// Handlers read them via GetUserID, GetEmail and GetRole.
func WithIdentity(ctx context.Context, userID, email string, role userdomain.Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, emailKey, email)
	ctx = context.WithValue(ctx, roleKey, role)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetEmail returns the email from context and true if set; otherwise "", false.
func GetEmail(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok
}

// GetRole returns the role from context and true if set; otherwise "", false.
func GetRole(ctx context.Context) (userdomain.Role, bool) {
	v, ok := ctx.Value(roleKey).(userdomain.Role)
	return v, ok
}
