// Package audit records privileged state changes. Recording is best
// effort: a missing or failing audit trail never fails the business
// operation it accompanies.
package audit

import (
	"context"
	"time"
)

// Record is one append-only audit entry. ActorRole is a plain string so
// this package stays import-free of the domain layers it observes.
type Record struct {
	ActorID   string         `json:"actor_id"`
	ActorRole string         `json:"actor_role"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Meta      map[string]any `json:"meta,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	At        time.Time      `json:"at"`
}

// Recorder accepts records without reporting failure to the caller.
// Implementations log their own errors.
type Recorder interface {
	Record(ctx context.Context, rec Record)
}

// Action tags for the privileged mutations this platform audits.
const (
	ActionEnrollmentApprove = "enrollment.approve"
	ActionEnrollmentRevoke  = "enrollment.revoke"
	ActionCourseCreate      = "course.create"
	ActionCourseUpdate      = "course.update"
	ActionLessonCreate      = "lesson.create"
	ActionUserSuspend       = "user.suspend"
	ActionUserUnsuspend     = "user.unsuspend"
)
