package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/meridian-lms/meridian-lms/internal/observability"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the global middleware chain. Route-level guards
// (authenticator, CSRF, role gates, per-route limiters) are mounted on
// their subtrees by the router.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	globalMax := 120
	globalWindow := time.Minute
	if cfg.Config != nil {
		if cfg.Config.GlobalRateMax > 0 {
			globalMax = cfg.Config.GlobalRateMax
		}
		if cfg.Config.GlobalRateWindow > 0 {
			globalWindow = cfg.Config.GlobalRateWindow
		}
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					httpx.Fail(w, http.StatusInternalServerError, httpx.CodeInternal, "internal error")
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		originCheck(cfg),
		middleware.Compress(5),
		httprate.Limit(globalMax, globalWindow, httprate.WithKeyFuncs(httprate.KeyByIP)),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}

// originCheck enforces the configured origin allow-list. Requests without
// an Origin header (same-origin navigation, curl, server-to-server) pass
// untouched; a browser request from a foreign origin is rejected before it
// reaches any other guard.
func originCheck(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	if cfg.Config != nil {
		for _, origin := range cfg.Config.AllowedOrigins {
			allowed[origin] = struct{}{}
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := allowed[origin]; !ok {
				httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden, "origin not allowed")
				return
			}
			header := w.Header()
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Vary", "Origin")
			if r.Method == http.MethodOptions {
				header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+csrfHeader(cfg.Config))
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func csrfHeader(cfg *Config) string {
	if cfg == nil || cfg.CSRFHeaderName == "" {
		return "x-csrf-token"
	}
	return cfg.CSRFHeaderName
}
