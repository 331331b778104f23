// Package service wraps the session store with validity-aware operations.
package service

import (
	"context"
	"time"

	"session-auth-service/internal/session/domain"
	"session-auth-service/internal/session/repository"
)

// Manager is the session record manager. It owns "now" for every validity
// decision so callers never compare timestamps themselves.
type Manager struct {
	repo repository.Repository
	now  func() time.Time
}

// NewManager returns a Manager over repo using the wall clock.
func NewManager(repo repository.Repository) *Manager {
	return &Manager{repo: repo, now: time.Now}
}

// WithClock replaces the clock. Intended for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Now returns the manager's current time in UTC.
func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

// Create opens a new active session for userID that expires at expiresAt.
func (m *Manager) Create(ctx context.Context, userID string, expiresAt time.Time, meta domain.Metadata) (*domain.Session, error) {
	meta = meta.Normalize()
	return m.repo.Create(ctx, &domain.Session{
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
}

// FindByID returns the session or nil when it does not exist. Validity is not checked.
func (m *Manager) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	return m.repo.GetByID(ctx, id)
}

// FindActiveByUserID returns the user's valid sessions, most recently used first.
func (m *Manager) FindActiveByUserID(ctx context.Context, userID string) ([]*domain.Session, error) {
	return m.repo.ListActiveByUserID(ctx, userID, m.Now())
}

// Touch records a use of the session. Empty metadata fields keep their stored values.
// Touching a revoked or expired session is tolerated.
func (m *Manager) Touch(ctx context.Context, id string, meta domain.Metadata) error {
	meta = meta.Normalize()
	return m.repo.UpdateLastUsed(ctx, id, m.Now(), meta.IP, meta.UserAgent)
}

// Revoke revokes one session. Idempotent.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	return m.repo.Revoke(ctx, id)
}

// RevokeAllByUser revokes every session of the user and returns how many were
// still unrevoked. Idempotent.
func (m *Manager) RevokeAllByUser(ctx context.Context, userID string) (int64, error) {
	return m.repo.RevokeAllByUserID(ctx, userID)
}

// RevokeIfActive revokes the session only if it is still valid. It returns false
// when the session was already revoked, expired, missing, or revoked by a
// concurrent caller first.
func (m *Manager) RevokeIfActive(ctx context.Context, id string) (bool, error) {
	return m.repo.RevokeIfActive(ctx, id, m.Now())
}

// DeleteExpired removes sessions whose expiry has passed, revoked or not.
func (m *Manager) DeleteExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.Now())
}
