package middleware

import (
	"context"
	"testing"

	userdomain "session-auth-service/internal/user/domain"
)

func TestWithIdentity_SetsAllValues(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "a@x.com", userdomain.RoleAdmin)

	userID, ok := GetUserID(ctx)
	if !ok || userID != "user-1" {
		t.Errorf("GetUserID = %q, %v; want %q, true", userID, ok, "user-1")
	}
	email, ok := GetEmail(ctx)
	if !ok || email != "a@x.com" {
		t.Errorf("GetEmail = %q, %v; want %q, true", email, ok, "a@x.com")
	}
	role, ok := GetRole(ctx)
	if !ok || role != userdomain.RoleAdmin {
		t.Errorf("GetRole = %q, %v; want %q, true", role, ok, userdomain.RoleAdmin)
	}
}

func TestGetters_ReturnFalseWhenNotSet(t *testing.T) {
	ctx := context.Background()
	if v, ok := GetUserID(ctx); ok || v != "" {
		t.Errorf("GetUserID = %q, %v; want empty, false", v, ok)
	}
	if v, ok := GetEmail(ctx); ok || v != "" {
		t.Errorf("GetEmail = %q, %v; want empty, false", v, ok)
	}
	if v, ok := GetRole(ctx); ok || v != "" {
		t.Errorf("GetRole = %q, %v; want empty, false", v, ok)
	}
}

func TestWithIdentity_Chaining(t *testing.T) {
	ctx := WithIdentity(context.Background(), "user-1", "a@x.com", userdomain.RoleUser)
	ctx = WithIdentity(ctx, "user-2", "b@x.com", userdomain.RoleAdmin)

	// Last call should override
	if userID, _ := GetUserID(ctx); userID != "user-2" {
		t.Errorf("user_id = %q, want %q", userID, "user-2")
	}
	if role, _ := GetRole(ctx); role != userdomain.RoleAdmin {
		t.Errorf("role = %q, want %q", role, userdomain.RoleAdmin)
	}
}
