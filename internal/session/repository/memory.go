package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"session-auth-service/internal/session/domain"
)

// MemoryRepository is an in-process session store for development and tests.
// All operations hold one mutex, so RevokeIfActive is a true compare-and-set.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	now      func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.Session), now: time.Now}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *s
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := r.now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.sessions[stored.ID] = &stored
	return copySession(&stored), nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (r *MemoryRepository) ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	out := make([]*domain.Session, 0)
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsValid(now) {
			out = append(out, copySession(s))
		}
	}
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastUsedAt != nil && b.LastUsedAt != nil:
			if !a.LastUsedAt.Equal(*b.LastUsedAt) {
				return a.LastUsedAt.After(*b.LastUsedAt)
			}
		case a.LastUsedAt != nil:
			return true
		case b.LastUsedAt != nil:
			return false
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time, ip, userAgent string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	t := at
	s.LastUsedAt = &t
	if ip != "" {
		s.IP = ip
	}
	if userAgent != "" {
		s.UserAgent = userAgent
	}
	s.UpdatedAt = at
	return nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && !s.Revoked {
		s.Revoked = true
		s.UpdatedAt = r.now().UTC()
	}
	return nil
}

func (r *MemoryRepository) RevokeIfActive(ctx context.Context, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.IsValid(now) {
		return false, nil
	}
	s.Revoked = true
	s.UpdatedAt = now
	return true, nil
}

func (r *MemoryRepository) RevokeAllByUserID(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now().UTC()
	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func copySession(s *domain.Session) *domain.Session {
	cp := *s
	if s.LastUsedAt != nil {
		t := *s.LastUsedAt
		cp.LastUsedAt = &t
	}
	return &cp
}
