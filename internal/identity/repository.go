package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Repository defines persistence operations for the identity module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	SetSuspended(ctx context.Context, id string, suspended bool) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, name, role, suspended, created_at, updated_at`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByID fetches a user by id. Callers rely on this being a live read:
// role and suspension are security controls and must never be cached.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// SetSuspended flips the suspension flag for an account.
func (r *PGRepository) SetSuspended(ctx context.Context, id string, suspended bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET suspended = $2, updated_at = NOW() WHERE id = $1`, id, suspended)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var u User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &role, &u.Suspended, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
