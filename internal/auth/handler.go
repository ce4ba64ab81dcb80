package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/token"
)

// Handler wires HTTP endpoints for the session lifecycle.
type Handler struct {
	logger   *slog.Logger
	identity *identity.Service
	codec    *token.Codec
	cfg      CookieConfig
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, ident *identity.Service, codec *token.Codec, cfg CookieConfig) *Handler {
	return &Handler{
		logger:   logger,
		identity: ident,
		codec:    codec,
		cfg:      cfg,
		validate: validator.New(),
	}
}

// MountRoutes registers auth routes. Login and CSRF issuance sit outside
// the authenticated subtree; "me" requires a principal.
func (h *Handler) MountRoutes(r chi.Router, authenticator *Authenticator) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/csrf", h.handleCSRF)
	r.With(authenticator.Require).Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, httpx.CodeValidation, "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		httpx.FailFields(w, "invalid login payload", fields)
		return
	}

	user, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	if user.Suspended {
		httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden, "account suspended")
		return
	}

	signed, err := h.codec.Sign(user.ID, user.Role)
	if err != nil {
		h.logger.Error("sign session token", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
		return
	}

	h.setSessionCookie(w, signed, token.TTL)
	h.setCSRFCookie(w, MintCSRFToken())

	httpx.OK(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Name: user.Name, Role: string(user.Role)})
}

// handleLogout clears cookies. Issued tokens stay valid until expiry; the
// platform keeps no revocation list.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", -time.Second)
	httpx.OK(w, http.StatusOK, nil)
}

// handleCSRF issues a fresh token the client stores as a cookie and echoes
// back in the configured header on every mutating call.
func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	value := MintCSRFToken()
	h.setCSRFCookie(w, value)
	httpx.OK(w, http.StatusOK, map[string]string{"csrfToken": value})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
		return
	}
	user, err := h.identity.Lookup(r.Context(), principal.UserID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email, Name: user.Name, Role: string(user.Role)})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: h.cfg.SameSite,
		MaxAge:   int(ttl.Seconds()),
	})
}

// The CSRF cookie must stay readable by client script so the value can be
// echoed in the request header, hence no HttpOnly.
func (h *Handler) setCSRFCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CSRFCookie,
		Value:    value,
		Path:     "/",
		Secure:   h.cfg.Secure,
		SameSite: h.cfg.SameSite,
		MaxAge:   int(token.TTL.Seconds()),
	})
}
