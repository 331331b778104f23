package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"session-auth-service/internal/user/domain"
)

const userColumns = `id, email, password_hash, role, full_name, created_at, updated_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository that uses the given pool for persistence.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create validates and inserts the user, assigning its ID when empty.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	out := *u
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	out.CreatedAt, out.UpdatedAt = now, now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, role, full_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		out.ID, out.Email, out.PasswordHash, string(out.Role), nullString(out.FullName), out.CreatedAt, out.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &out, nil
}

// Update applies the non-nil fields of upd and bumps updated_at.
func (r *PostgresRepository) Update(ctx context.Context, id string, upd domain.Update) error {
	if upd.Empty() {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	var role *string
	if upd.Role != nil {
		s := string(*upd.Role)
		role = &s
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET
			password_hash = COALESCE($2, password_hash),
			role = COALESCE($3, role),
			full_name = COALESCE($4, full_name),
			updated_at = $5
		 WHERE id = $1`,
		id, upd.PasswordHash, role, upd.FullName, time.Now().UTC(),
	)
	return err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u        domain.User
		role     string
		fullName *string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &role, &fullName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = domain.Role(role)
	if fullName != nil {
		u.FullName = *fullName
	}
	return &u, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
