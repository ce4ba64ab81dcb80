package enrollment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/auth"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Handler wires HTTP endpoints for enrollments.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountCourseRoutes registers the per-course enrollment endpoints on an
// authenticated subtree.
func (h *Handler) MountCourseRoutes(r chi.Router) {
	r.With(auth.RequireRole(identity.RoleStudent)).
		Post("/{courseID}/enrollments", h.handleRequest)
	r.With(auth.RequireRole(identity.RoleInstructor, identity.RoleAdmin)).
		Get("/{courseID}/enrollments", h.handleList)
}

// MountRoutes registers the decision endpoints on an authenticated subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	gate := auth.RequireRole(identity.RoleInstructor, identity.RoleAdmin)
	r.With(gate).Post("/{enrollmentID}/approve", h.handleApprove)
	r.With(gate).Post("/{enrollmentID}/revoke", h.handleRevoke)
}

type enrollmentResponse struct {
	ID       string `json:"id"`
	CourseID string `json:"courseId"`
	UserID   string `json:"userId"`
	Status   string `json:"status"`
}

func toResponse(e *Enrollment) enrollmentResponse {
	return enrollmentResponse{ID: e.ID, CourseID: e.CourseID, UserID: e.UserID, Status: string(e.Status)}
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
		return
	}
	e, err := h.service.Request(r.Context(), principal, chi.URLParam(r, "courseID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toResponse(e))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
		return
	}
	list, err := h.service.List(r.Context(), principal, chi.URLParam(r, "courseID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	out := make([]enrollmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Approve)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Revoke)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor identity.Principal, id string, meta RequestMeta) (*Enrollment, error)) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
		return
	}
	meta := RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	e, err := fn(r.Context(), principal, chi.URLParam(r, "enrollmentID"), meta)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(e))
}
