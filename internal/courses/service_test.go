package courses_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/courses"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	_ "github.com/meridian-lms/meridian-lms/testing"
)

type memCourseRepo struct {
	mu      sync.Mutex
	rows    map[string]*courses.Course
	lessons map[string][]courses.Lesson
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{
		rows:    make(map[string]*courses.Course),
		lessons: make(map[string][]courses.Lesson),
	}
}

func (r *memCourseRepo) Create(ctx context.Context, c *courses.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Slug == c.Slug {
			return fmt.Errorf("course slug already in use: %w", httpx.ErrConflict)
		}
	}
	clone := *c
	r.rows[c.ID] = &clone
	return nil
}

func (r *memCourseRepo) Update(ctx context.Context, c *courses.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.ID]; !ok {
		return fmt.Errorf("course: %w", httpx.ErrNotFound)
	}
	clone := *c
	r.rows[c.ID] = &clone
	return nil
}

func (r *memCourseRepo) GetByID(ctx context.Context, id string) (*courses.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, fmt.Errorf("course: %w", httpx.ErrNotFound)
	}
	clone := *row
	return &clone, nil
}

func (r *memCourseRepo) List(ctx context.Context) ([]courses.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []courses.Course
	for _, row := range r.rows {
		if row.Published {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (r *memCourseRepo) OwnerID(ctx context.Context, courseID string) (string, error) {
	c, err := r.GetByID(ctx, courseID)
	if err != nil {
		return "", err
	}
	return c.InstructorID, nil
}

func (r *memCourseRepo) CreateLesson(ctx context.Context, l *courses.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lessons[l.CourseID] = append(r.lessons[l.CourseID], *l)
	return nil
}

func (r *memCourseRepo) ListLessons(ctx context.Context, courseID string) ([]courses.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]courses.Lesson(nil), r.lessons[courseID]...), nil
}

type captureRecorder struct {
	records []audit.Record
}

func (c *captureRecorder) Record(ctx context.Context, rec audit.Record) {
	c.records = append(c.records, rec)
}

var (
	instructor = identity.Principal{UserID: "instructor-1", Role: identity.RoleInstructor}
	admin      = identity.Principal{UserID: "admin-1", Role: identity.RoleAdmin}
)

func TestCreateSlugsTitleAndAudits(t *testing.T) {
	repo := newMemCourseRepo()
	recorder := &captureRecorder{}
	svc := courses.NewService(repo, recorder)

	c, err := svc.Create(context.Background(), instructor, courses.CreateInput{
		Title:     "Go for Backend Engineers",
		Published: true,
	})
	require.NoError(t, err)
	require.Equal(t, "go-for-backend-engineers", c.Slug)
	require.Equal(t, instructor.UserID, c.InstructorID)

	require.Len(t, recorder.records, 1)
	require.Equal(t, audit.ActionCourseCreate, recorder.records[0].Action)
}

func TestCreateDuplicateSlugConflict(t *testing.T) {
	repo := newMemCourseRepo()
	svc := courses.NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, instructor, courses.CreateInput{Title: "Same Title"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, instructor, courses.CreateInput{Title: "Same Title"})
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestUpdateRequiresOwnership(t *testing.T) {
	repo := newMemCourseRepo()
	svc := courses.NewService(repo, nil)
	ctx := context.Background()

	c, err := svc.Create(ctx, instructor, courses.CreateInput{Title: "Original"})
	require.NoError(t, err)

	other := identity.Principal{UserID: "instructor-2", Role: identity.RoleInstructor}
	_, err = svc.Update(ctx, other, c.ID, courses.CreateInput{Title: "Hijacked"})
	require.ErrorIs(t, err, httpx.ErrForbidden)

	updated, err := svc.Update(ctx, admin, c.ID, courses.CreateInput{Title: "Renamed", Published: true})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Slug)
}

func TestAddLessonRequiresOwnership(t *testing.T) {
	repo := newMemCourseRepo()
	recorder := &captureRecorder{}
	svc := courses.NewService(repo, recorder)
	ctx := context.Background()

	c, err := svc.Create(ctx, instructor, courses.CreateInput{Title: "With Lessons"})
	require.NoError(t, err)

	student := identity.Principal{UserID: "student-1", Role: identity.RoleStudent}
	_, err = svc.AddLesson(ctx, student, c.ID, courses.LessonInput{Title: "Intro", Position: 1})
	require.ErrorIs(t, err, httpx.ErrForbidden)

	l, err := svc.AddLesson(ctx, instructor, c.ID, courses.LessonInput{Title: "Intro", Position: 1})
	require.NoError(t, err)

	list, err := svc.Lessons(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, l.ID, list[0].ID)
}

func TestListOnlyPublished(t *testing.T) {
	repo := newMemCourseRepo()
	svc := courses.NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, instructor, courses.CreateInput{Title: "Draft"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, instructor, courses.CreateInput{Title: "Live", Published: true})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Live", list[0].Title)
}
