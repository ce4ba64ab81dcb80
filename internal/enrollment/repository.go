package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Repository defines persistence operations for enrollments.
type Repository interface {
	Create(ctx context.Context, e *Enrollment) error
	GetByID(ctx context.Context, id string) (*Enrollment, error)
	// UpdateStatus performs a compare-and-swap on the stored status. It
	// must only succeed when the row still holds expected, so exactly one
	// of two concurrent decisions on the same enrollment wins.
	UpdateStatus(ctx context.Context, id string, expected, next Status) error
	ListByCourse(ctx context.Context, courseID string) ([]Enrollment, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new REQUESTED enrollment. The partial unique index on
// (course_id, user_id) for non-revoked rows turns a duplicate pending or
// active request into a conflict.
func (r *PGRepository) Create(ctx context.Context, e *Enrollment) error {
	err := r.pool.QueryRow(ctx, `
INSERT INTO enrollments (id, course_id, user_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
RETURNING created_at, updated_at`,
		e.ID, e.CourseID, e.UserID, string(e.Status)).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("enrollment already requested: %w", httpx.ErrConflict)
		}
		return err
	}
	return nil
}

// GetByID fetches a single enrollment.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Enrollment, error) {
	var e Enrollment
	var status string
	err := r.pool.QueryRow(ctx, `
SELECT id, course_id, user_id, status, created_at, updated_at
FROM enrollments WHERE id = $1`, id).
		Scan(&e.ID, &e.CourseID, &e.UserID, &status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	e.Status = Status(status)
	return &e, nil
}

// UpdateStatus flips status only when the stored value still matches
// expected. Zero rows affected means another decision landed first.
func (r *PGRepository) UpdateStatus(ctx context.Context, id string, expected, next Status) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE enrollments SET status = $3, updated_at = NOW()
WHERE id = $1 AND status = $2`, id, string(expected), string(next))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("enrollment status changed concurrently: %w", httpx.ErrConflict)
	}
	return nil
}

// ListByCourse returns all enrollments for a course, newest first.
func (r *PGRepository) ListByCourse(ctx context.Context, courseID string) ([]Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, course_id, user_id, status, created_at, updated_at
FROM enrollments WHERE course_id = $1 ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		var e Enrollment
		var status string
		if err := rows.Scan(&e.ID, &e.CourseID, &e.UserID, &status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Status = Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
