package domain

import "testing"

func TestUser_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		user    User
		wantErr bool
	}{
		{"ok", User{Email: "a@x.com", PasswordHash: "h"}, false},
		{"trimmed email", User{Email: "  a@x.com ", PasswordHash: "h"}, false},
		{"missing email", User{Email: "   ", PasswordHash: "h"}, true},
		{"missing hash", User{Email: "a@x.com"}, true},
		{"admin role", User{Email: "a@x.com", PasswordHash: "h", Role: RoleAdmin}, false},
		{"unknown role", User{Email: "a@x.com", PasswordHash: "h", Role: "root"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u := tc.user
			err := u.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestUser_ValidateDefaultsRole(t *testing.T) {
	u := User{Email: " a@x.com", PasswordHash: "h"}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if u.Role != RoleUser {
		t.Errorf("Role = %q, want %q", u.Role, RoleUser)
	}
	if u.Email != "a@x.com" {
		t.Errorf("Email = %q, want trimmed", u.Email)
	}
}

func TestUpdate_Empty(t *testing.T) {
	if !(Update{}).Empty() {
		t.Error("zero Update should be empty")
	}
	name := "Ada"
	if (Update{FullName: &name}).Empty() {
		t.Error("Update with FullName should not be empty")
	}
}
