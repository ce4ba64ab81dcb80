package auth

import (
	"crypto/hmac"
	"net/http"

	"github.com/google/uuid"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// CSRFGuard enforces double-submit verification on state-mutating methods.
// The guard never mints tokens; issuance lives on the auth handler.
type CSRFGuard struct {
	cfg CookieConfig
}

// NewCSRFGuard constructs a CSRFGuard.
func NewCSRFGuard(cfg CookieConfig) *CSRFGuard {
	return &CSRFGuard{cfg: cfg}
}

// Verify passes read-only methods untouched. For everything else the named
// cookie and header must both be present and byte-identical; absence of
// either is a failure, not an implicit allow.
func (g *CSRFGuard) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(g.cfg.CSRFCookie)
		if err != nil || cookie.Value == "" {
			httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden, "Invalid CSRF token")
			return
		}
		header := r.Header.Get(g.cfg.CSRFHeader)
		if header == "" || !hmac.Equal([]byte(cookie.Value), []byte(header)) {
			httpx.Fail(w, http.StatusForbidden, httpx.CodeForbidden, "Invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MintCSRFToken generates a fresh random token value.
func MintCSRFToken() string {
	return uuid.NewString()
}
