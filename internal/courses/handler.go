package courses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-lms/meridian-lms/internal/auth"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountPublicRoutes registers the read-only catalog.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{courseID}", h.handleGet)
	r.Get("/{courseID}/lessons", h.handleListLessons)
}

// MountRoutes registers the mutating catalog endpoints on an authenticated
// subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	gate := auth.RequireRole(identity.RoleInstructor, identity.RoleAdmin)
	r.With(gate).Post("/", h.handleCreate)
	r.With(gate).Put("/{courseID}", h.handleUpdate)
	r.With(gate).Post("/{courseID}/lessons", h.handleAddLesson)
}

type courseRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Published   bool   `json:"published"`
}

type lessonRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Position int    `json:"position" validate:"gte=0"`
	Content  string `json:"content" validate:"required"`
}

type courseResponse struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	InstructorID string `json:"instructorId"`
	Published    bool   `json:"published"`
}

type lessonResponse struct {
	ID       string `json:"id"`
	CourseID string `json:"courseId"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Content  string `json:"content"`
}

func toCourseResponse(c *Course) courseResponse {
	return courseResponse{
		ID: c.ID, Title: c.Title, Slug: c.Slug, Description: c.Description,
		InstructorID: c.InstructorID, Published: c.Published,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.Error(w, err)
		return
	}
	out := make([]courseResponse, 0, len(list))
	for i := range list {
		out = append(out, toCourseResponse(&list[i]))
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toCourseResponse(c))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, in, ok := h.decodeCourse(w, r)
	if !ok {
		return
	}
	c, err := h.service.Create(r.Context(), principal, in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toCourseResponse(c))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, in, ok := h.decodeCourse(w, r)
	if !ok {
		return
	}
	c, err := h.service.Update(r.Context(), principal, chi.URLParam(r, "courseID"), in)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toCourseResponse(c))
}

func (h *Handler) handleAddLesson(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
		return
	}
	var req lessonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.CodeValidation, "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.FailFields(w, "invalid lesson payload", fieldErrors(err))
		return
	}
	l, err := h.service.AddLesson(r.Context(), principal, chi.URLParam(r, "courseID"), LessonInput(req))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, lessonResponse{
		ID: l.ID, CourseID: l.CourseID, Title: l.Title, Position: l.Position, Content: l.Content,
	})
}

func (h *Handler) handleListLessons(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Lessons(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	out := make([]lessonResponse, 0, len(list))
	for _, l := range list {
		out = append(out, lessonResponse{
			ID: l.ID, CourseID: l.CourseID, Title: l.Title, Position: l.Position, Content: l.Content,
		})
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) decodeCourse(w http.ResponseWriter, r *http.Request) (identity.Principal, CreateInput, bool) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
		return identity.Principal{}, CreateInput{}, false
	}
	var req courseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.CodeValidation, "malformed JSON body")
		return identity.Principal{}, CreateInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.FailFields(w, "invalid course payload", fieldErrors(err))
		return identity.Principal{}, CreateInput{}, false
	}
	return principal, CreateInput(req), true
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range verrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	return fields
}
