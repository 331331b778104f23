package domain

import (
	"errors"
	"strings"
	"time"
)

// Role is a coarse capability tag carried in access tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is the core user entity. PasswordHash must never be shaped into a response.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	FullName     string // optional
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
// An empty role defaults to RoleUser.
func (u *User) Validate() error {
	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		return errors.New("email is required")
	}
	if len(u.Email) > 200 {
		return errors.New("email is too long")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if !u.Role.Valid() {
		return errors.New("unknown role")
	}
	return nil
}

// Update holds a partial user update; nil fields are left unchanged.
type Update struct {
	PasswordHash *string
	Role         *Role
	FullName     *string
}

// Empty reports whether the update changes nothing.
func (u Update) Empty() bool {
	return u.PasswordHash == nil && u.Role == nil && u.FullName == nil
}
