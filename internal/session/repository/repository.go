package repository

import (
	"context"
	"time"

	"session-auth-service/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	// Create assigns ID and timestamps and persists s.
	Create(ctx context.Context, s *domain.Session) (*domain.Session, error)
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListActiveByUserID returns unrevoked sessions with expires_at > now, most recently used first.
	ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	// UpdateLastUsed sets last_used_at; ip and userAgent are only written when non-empty.
	UpdateLastUsed(ctx context.Context, id string, at time.Time, ip, userAgent string) error
	// Revoke marks the session revoked. Revoking a revoked or missing session is not an error.
	Revoke(ctx context.Context, id string) error
	// RevokeIfActive revokes the session only if it is unrevoked and unexpired at now.
	// Returns true when this call performed the transition.
	RevokeIfActive(ctx context.Context, id string, now time.Time) (bool, error)
	// RevokeAllByUserID revokes every unrevoked session of the user and returns how many it revoked.
	RevokeAllByUserID(ctx context.Context, userID string) (int64, error)
	// DeleteExpired deletes sessions with expires_at < now regardless of the revoked flag.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
