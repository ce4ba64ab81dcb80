package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/platform/db"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Repository defines persistence operations for the catalog.
type Repository interface {
	Create(ctx context.Context, c *Course) error
	Update(ctx context.Context, c *Course) error
	GetByID(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context) ([]Course, error)
	OwnerID(ctx context.Context, courseID string) (string, error)
	CreateLesson(ctx context.Context, l *Lesson) error
	ListLessons(ctx context.Context, courseID string) ([]Lesson, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const courseColumns = `id, title, slug, description, instructor_id, published, created_at, updated_at`

// Create inserts a course. A duplicate slug is a conflict.
func (r *PGRepository) Create(ctx context.Context, c *Course) error {
	err := r.pool.QueryRow(ctx, `
INSERT INTO courses (id, title, slug, description, instructor_id, published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
RETURNING created_at, updated_at`,
		c.ID, c.Title, c.Slug, c.Description, c.InstructorID, c.Published).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("course slug already in use: %w", httpx.ErrConflict)
		}
		return err
	}
	return nil
}

// Update rewrites the mutable course fields.
func (r *PGRepository) Update(ctx context.Context, c *Course) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE courses SET title = $2, slug = $3, description = $4, published = $5, updated_at = NOW()
WHERE id = $1`,
		c.ID, c.Title, c.Slug, c.Description, c.Published)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// GetByID fetches a single course.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Course, error) {
	var c Course
	err := r.pool.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.InstructorID, &c.Published, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all published courses, newest first.
func (r *PGRepository) List(ctx context.Context) ([]Course, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+courseColumns+` FROM courses WHERE published ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.InstructorID, &c.Published, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// OwnerID resolves the owning instructor without loading the whole row.
func (r *PGRepository) OwnerID(ctx context.Context, courseID string) (string, error) {
	var ownerID string
	err := r.pool.QueryRow(ctx, `SELECT instructor_id FROM courses WHERE id = $1`, courseID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", httpx.ErrNotFound
		}
		return "", err
	}
	return ownerID, nil
}

// CreateLesson appends a lesson to a course. A zero position means append;
// the next slot is computed and written in one transaction.
func (r *PGRepository) CreateLesson(ctx context.Context, l *Lesson) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if l.Position <= 0 {
			err := tx.QueryRow(ctx, `
SELECT COALESCE(MAX(position), 0) + 1 FROM lessons WHERE course_id = $1`,
				l.CourseID).Scan(&l.Position)
			if err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx, `
INSERT INTO lessons (id, course_id, title, position, content, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING created_at, updated_at`,
			l.ID, l.CourseID, l.Title, l.Position, l.Content).
			Scan(&l.CreatedAt, &l.UpdatedAt)
	})
}

// ListLessons returns a course's lessons in position order.
func (r *PGRepository) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, course_id, title, position, content, created_at, updated_at
FROM lessons WHERE course_id = $1 ORDER BY position ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lesson
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.Content, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
