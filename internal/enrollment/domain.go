// Package enrollment governs the access-request to active-enrollment to
// revocation flow.
package enrollment

import (
	"fmt"
	"time"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Status is the lifecycle state of an enrollment.
type Status string

const (
	// StatusRequested is the initial state, created by a student's
	// access request.
	StatusRequested Status = "REQUESTED"
	// StatusActive marks an approved enrollment.
	StatusActive Status = "ACTIVE"
	// StatusRevoked is terminal. Nothing leaves REVOKED.
	StatusRevoked Status = "REVOKED"
)

// Enrollment captures a student's registration to a course.
type Enrollment struct {
	ID        string
	CourseID  string
	UserID    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssertTransition validates a requested status change against the current
// state. It is pure and must run before any persistence write; the write
// itself is additionally guarded by a conditional update so a race between
// two concurrent decisions cannot both succeed.
func AssertTransition(current, requested Status) error {
	if requested != StatusActive && requested != StatusRevoked {
		return fmt.Errorf("invalid transition: %w", httpx.ErrValidation)
	}
	switch current {
	case StatusRequested:
		return nil
	case StatusActive:
		if requested == StatusActive {
			return fmt.Errorf("already active: %w", httpx.ErrConflict)
		}
		return nil
	case StatusRevoked:
		return fmt.Errorf("revoked, immutable: %w", httpx.ErrConflict)
	default:
		return fmt.Errorf("invalid transition: %w", httpx.ErrValidation)
	}
}
