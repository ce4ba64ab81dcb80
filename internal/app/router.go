package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/auth"
	"github.com/meridian-lms/meridian-lms/internal/courses"
	"github.com/meridian-lms/meridian-lms/internal/enrollment"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/observability"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/ratelimit"
	"github.com/meridian-lms/meridian-lms/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Authenticator     *auth.Authenticator
	CSRFGuard         *auth.CSRFGuard
	LoginLimiter      *ratelimit.Limiter
	AuthHandler       *auth.Handler
	CourseHandler     *courses.Handler
	EnrollmentHandler *enrollment.Handler
	IdentityHandler   *identity.Handler
	AuditHandler      *audit.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router. Global middleware runs first, then
// each subtree layers its limiter, authenticator, CSRF guard and role
// gates before the handlers.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			if params.LoginLimiter != nil {
				ar.Use(params.LoginLimiter.Middleware)
			}
			ar.Use(params.CSRFGuard.Verify)
			params.AuthHandler.MountRoutes(ar, params.Authenticator)
		})

		// Public catalog reads.
		api.Route("/catalog", func(cr chi.Router) {
			params.CourseHandler.MountPublicRoutes(cr)
		})

		// Everything below requires a principal; the CSRF check runs after
		// authentication so a missing session reads as 401, not 403.
		api.Group(func(authed chi.Router) {
			authed.Use(params.Authenticator.Require)
			authed.Use(params.CSRFGuard.Verify)

			authed.Route("/courses", func(cr chi.Router) {
				params.CourseHandler.MountRoutes(cr)
				params.EnrollmentHandler.MountCourseRoutes(cr)
			})

			authed.Route("/enrollments", func(er chi.Router) {
				params.EnrollmentHandler.MountRoutes(er)
			})

			authed.Route("/admin", func(admin chi.Router) {
				admin.Use(auth.RequireRole(identity.RoleAdmin))
				admin.Route("/users", params.IdentityHandler.MountRoutes)
				admin.Route("/audit", params.AuditHandler.MountRoutes)
				if params.JobsHandler != nil {
					admin.Route("/jobs", params.JobsHandler.MountRoutes)
				}
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, httpx.CodeNotFound, "route not found")
	})

	return r
}
