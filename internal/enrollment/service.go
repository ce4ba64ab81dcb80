package enrollment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// CourseOwners resolves the owning instructor of a course.
type CourseOwners interface {
	OwnerID(ctx context.Context, courseID string) (string, error)
}

// RequestMeta carries client attribution for audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Service drives the enrollment lifecycle.
type Service struct {
	repo     Repository
	owners   CourseOwners
	recorder audit.Recorder
}

// NewService constructs a Service.
func NewService(repo Repository, owners CourseOwners, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{repo: repo, owners: owners, recorder: recorder}
}

// Request creates a REQUESTED enrollment for the acting student.
func (s *Service) Request(ctx context.Context, actor identity.Principal, courseID string) (*Enrollment, error) {
	if _, err := s.owners.OwnerID(ctx, courseID); err != nil {
		return nil, err
	}
	e := &Enrollment{
		ID:       uuid.NewString(),
		CourseID: courseID,
		UserID:   actor.UserID,
		Status:   StatusRequested,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Approve transitions an enrollment to ACTIVE.
func (s *Service) Approve(ctx context.Context, actor identity.Principal, enrollmentID string, meta RequestMeta) (*Enrollment, error) {
	return s.transition(ctx, actor, enrollmentID, StatusActive, audit.ActionEnrollmentApprove, meta)
}

// Revoke transitions an enrollment to REVOKED.
func (s *Service) Revoke(ctx context.Context, actor identity.Principal, enrollmentID string, meta RequestMeta) (*Enrollment, error) {
	return s.transition(ctx, actor, enrollmentID, StatusRevoked, audit.ActionEnrollmentRevoke, meta)
}

// List returns a course's enrollments to its owner or an admin.
func (s *Service) List(ctx context.Context, actor identity.Principal, courseID string) ([]Enrollment, error) {
	if err := s.authorize(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListByCourse(ctx, courseID)
}

// transition runs the pure state check, then the conditional write whose
// WHERE clause repeats the expected status, so a concurrent decision leaves
// exactly one winner and one Conflict.
func (s *Service) transition(ctx context.Context, actor identity.Principal, enrollmentID string, next Status, action string, meta RequestMeta) (*Enrollment, error) {
	current, err := s.repo.GetByID(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, current.CourseID); err != nil {
		return nil, err
	}
	if err := AssertTransition(current.Status, next); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, enrollmentID, current.Status, next); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Record{
		ActorID:   actor.UserID,
		ActorRole: string(actor.Role),
		Action:    action,
		Entity:    "enrollment",
		EntityID:  enrollmentID,
		Meta:      map[string]any{"course_id": current.CourseID, "from": string(current.Status), "to": string(next)},
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})

	updated := *current
	updated.Status = next
	return &updated, nil
}

// authorize requires the actor to own the course or hold the admin role.
// This is deliberately independent of the coarse role gate on the route.
func (s *Service) authorize(ctx context.Context, actor identity.Principal, courseID string) error {
	if actor.Role == identity.RoleAdmin {
		return nil
	}
	ownerID, err := s.owners.OwnerID(ctx, courseID)
	if err != nil {
		return err
	}
	if actor.Role == identity.RoleInstructor && ownerID == actor.UserID {
		return nil
	}
	return fmt.Errorf("not the course owner: %w", httpx.ErrForbidden)
}
