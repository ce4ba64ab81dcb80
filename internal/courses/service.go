package courses

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Service handles catalog business logic.
type Service struct {
	repo     Repository
	recorder audit.Recorder
}

// NewService constructs a Service.
func NewService(repo Repository, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{repo: repo, recorder: recorder}
}

// CreateInput carries validated course fields.
type CreateInput struct {
	Title       string
	Description string
	Published   bool
}

// Create registers a new course owned by the acting instructor.
func (s *Service) Create(ctx context.Context, actor identity.Principal, in CreateInput) (*Course, error) {
	c := &Course{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Slug:         Slugify(in.Title),
		Description:  in.Description,
		InstructorID: actor.UserID,
		Published:    in.Published,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.Record{
		ActorID: actor.UserID, ActorRole: string(actor.Role),
		Action: audit.ActionCourseCreate, Entity: "course", EntityID: c.ID,
	})
	return c, nil
}

// Update rewrites a course. Only the owning instructor or an admin may
// mutate it.
func (s *Service) Update(ctx context.Context, actor identity.Principal, id string, in CreateInput) (*Course, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, c); err != nil {
		return nil, err
	}
	c.Title = in.Title
	c.Slug = Slugify(in.Title)
	c.Description = in.Description
	c.Published = in.Published
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.Record{
		ActorID: actor.UserID, ActorRole: string(actor.Role),
		Action: audit.ActionCourseUpdate, Entity: "course", EntityID: c.ID,
	})
	return c, nil
}

// Get fetches a single course.
func (s *Service) Get(ctx context.Context, id string) (*Course, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the published catalog.
func (s *Service) List(ctx context.Context) ([]Course, error) {
	return s.repo.List(ctx)
}

// LessonInput carries validated lesson fields.
type LessonInput struct {
	Title    string
	Position int
	Content  string
}

// AddLesson appends a lesson to an owned course.
func (s *Service) AddLesson(ctx context.Context, actor identity.Principal, courseID string, in LessonInput) (*Lesson, error) {
	c, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, c); err != nil {
		return nil, err
	}
	l := &Lesson{
		ID:       uuid.NewString(),
		CourseID: courseID,
		Title:    in.Title,
		Position: in.Position,
		Content:  in.Content,
	}
	if err := s.repo.CreateLesson(ctx, l); err != nil {
		return nil, err
	}
	s.recorder.Record(ctx, audit.Record{
		ActorID: actor.UserID, ActorRole: string(actor.Role),
		Action: audit.ActionLessonCreate, Entity: "lesson", EntityID: l.ID,
		Meta: map[string]any{"course_id": courseID},
	})
	return l, nil
}

// Lessons lists a course's lessons.
func (s *Service) Lessons(ctx context.Context, courseID string) ([]Lesson, error) {
	return s.repo.ListLessons(ctx, courseID)
}

func (s *Service) authorize(actor identity.Principal, c *Course) error {
	if actor.Role == identity.RoleAdmin {
		return nil
	}
	if actor.Role == identity.RoleInstructor && c.InstructorID == actor.UserID {
		return nil
	}
	return fmt.Errorf("not the course owner: %w", httpx.ErrForbidden)
}
