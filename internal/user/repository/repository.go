package repository

import (
	"context"
	"errors"

	"session-auth-service/internal/user/domain"
)

// ErrEmailTaken is returned by Create when another user already has the email.
var ErrEmailTaken = errors.New("email already taken")

// Repository defines persistence for users.
type Repository interface {
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns the user with the exact email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create assigns ID and timestamps and persists u. Returns ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	// Update applies a partial update. Missing users are not an error.
	Update(ctx context.Context, id string, upd domain.Update) error
}
