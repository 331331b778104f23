package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"session-auth-service/internal/user/domain"
)

// MemoryRepository is an in-process user store for development and tests.
// It is selected when DATABASE_URL is empty.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return nil, ErrEmailTaken
	}
	stored := *u
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := r.now().UTC()
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	cp := stored
	return &cp, nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, upd domain.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || upd.Empty() {
		return nil
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	u.UpdatedAt = r.now().UTC()
	return nil
}
