package identity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Handler exposes administrative account controls.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	recorder audit.Recorder
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, recorder audit.Recorder) *Handler {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Handler{logger: logger, service: service, recorder: recorder}
}

// MountRoutes registers admin account routes. The caller wraps them with
// the admin role gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{userID}/suspend", h.suspendHandler(true, audit.ActionUserSuspend))
	r.Post("/{userID}/unsuspend", h.suspendHandler(false, audit.ActionUserUnsuspend))
}

// suspendHandler flips the suspension flag. The change applies on the
// target account's very next request since the authenticator reads the
// flag live.
func (h *Handler) suspendHandler(suspended bool, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		if err := h.service.Suspend(r.Context(), userID, suspended); err != nil {
			httpx.Error(w, err)
			return
		}
		if principal, ok := PrincipalFromContext(r.Context()); ok {
			h.recorder.Record(r.Context(), audit.Record{
				ActorID:   principal.UserID,
				ActorRole: string(principal.Role),
				Action:    action,
				Entity:    "user",
				EntityID:  userID,
				IP:        r.RemoteAddr,
				UserAgent: r.UserAgent(),
			})
		}
		httpx.OK(w, http.StatusOK, nil)
	}
}
