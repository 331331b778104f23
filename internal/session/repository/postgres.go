package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"session-auth-service/internal/session/domain"
)

const sessionColumns = `id, user_id, expires_at, revoked, last_used_at, ip, user_agent, created_at, updated_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository that uses the given pool for persistence.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts the session, assigning its ID when empty.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	out := *s
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, expires_at, revoked, last_used_at, ip, user_agent, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		out.ID, out.UserID, out.ExpiresAt, out.Revoked, out.LastUsedAt,
		nullIfEmpty(out.IP), nullIfEmpty(out.UserAgent), out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListActiveByUserID returns the user's unrevoked, unexpired sessions. Never-used
// sessions sort after used ones, newest first.
func (r *PostgresRepository) ListActiveByUserID(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return []*domain.Session{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE user_id = $1 AND NOT revoked AND expires_at > $2
		 ORDER BY last_used_at DESC NULLS LAST, created_at DESC`,
		userID, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateLastUsed sets last_used_at and overwrites ip/user_agent only when given.
func (r *PostgresRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time, ip, userAgent string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET
			last_used_at = $2,
			ip = COALESCE($3, ip),
			user_agent = COALESCE($4, user_agent),
			updated_at = $2
		 WHERE id = $1`,
		id, at, nullIfEmpty(ip), nullIfEmpty(userAgent),
	)
	return err
}

// Revoke marks the session revoked. Already-revoked and missing sessions are left alone.
func (r *PostgresRepository) Revoke(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET revoked = true, updated_at = $2 WHERE id = $1 AND NOT revoked`,
		id, time.Now().UTC(),
	)
	return err
}

// RevokeIfActive is a conditional update; at most one concurrent caller observes true.
func (r *PostgresRepository) RevokeIfActive(ctx context.Context, id string, now time.Time) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET revoked = true, updated_at = $2
		 WHERE id = $1 AND NOT revoked AND expires_at > $2`,
		id, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RevokeAllByUserID revokes every unrevoked session of the user.
func (r *PostgresRepository) RevokeAllByUserID(ctx context.Context, userID string) (int64, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET revoked = true, updated_at = $2 WHERE user_id = $1 AND NOT revoked`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired deletes sessions with expires_at < now and returns how many were removed.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		s         domain.Session
		ip        *string
		userAgent *string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.Revoked, &s.LastUsedAt, &ip, &userAgent, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if ip != nil {
		s.IP = *ip
	}
	if userAgent != nil {
		s.UserAgent = *userAgent
	}
	return &s, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
