// Package auth implements the request trust boundary: session
// authentication, role gating and CSRF defense.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/token"
)

// IdentityStore is the live lookup the authenticator performs per request.
type IdentityStore interface {
	Lookup(ctx context.Context, id string) (*identity.User, error)
}

// CookieConfig groups the cookie and header names used across the package.
type CookieConfig struct {
	SessionCookie  string
	CSRFCookie     string
	CSRFHeader     string
	SameSite       http.SameSite
	Secure         bool
	BearerFallback bool
}

// Authenticator resolves a Principal from an inbound request.
type Authenticator struct {
	codec  *token.Codec
	store  IdentityStore
	cfg    CookieConfig
	logger *slog.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(codec *token.Codec, store IdentityStore, cfg CookieConfig, logger *slog.Logger) *Authenticator {
	return &Authenticator{codec: codec, store: store, cfg: cfg, logger: logger}
}

// Require authenticates the request or stops the pipeline. Token failures
// of any kind map to a single 401; a valid token for a suspended account is
// a 403. The role attached to the principal comes from the identity store,
// not from the token payload, so demotion applies on the next request.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := a.extractToken(r)
		if raw == "" {
			httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
			return
		}

		claims, err := a.codec.Verify(raw)
		if err != nil {
			httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid session")
			return
		}

		user, err := a.store.Lookup(r.Context(), claims.Subject)
		if err != nil {
			// A deleted account holds a signed token; treat it the same
			// as any other invalid session.
			httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "invalid session")
			return
		}
		if user.Suspended {
			httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden, "account suspended")
			return
		}

		ctx := identity.ContextWithPrincipal(r.Context(), identity.Principal{UserID: user.ID, Role: user.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken prefers the session cookie; the bearer header is consulted
// only when the fallback is enabled and no cookie token is present.
func (a *Authenticator) extractToken(r *http.Request) string {
	if cookie, err := r.Cookie(a.cfg.SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if !a.cfg.BearerFallback {
		return ""
	}
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// RequireRole gates a subtree on the principal's role. It assumes the
// authenticator already ran: a missing principal is an authentication
// failure, never a silent deny.
func RequireRole(roles ...identity.Role) func(http.Handler) http.Handler {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := identity.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "authentication required")
				return
			}
			if _, ok := allowed[principal.Role]; !ok {
				httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden,
					fmt.Sprintf("role %s may not access this resource", principal.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
