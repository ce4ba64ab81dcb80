package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers audit routes. The caller wraps them with the admin
// role gate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	records, err := h.store.List(r.Context(), ListFilters{
		ActorID:  q.Get("actor"),
		Entity:   q.Get("entity"),
		Action:   q.Get("action"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.logger.Error("list audit records", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, records)
}
