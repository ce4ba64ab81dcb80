package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/meridian-lms/meridian-lms/internal/auth"
	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/token"
	_ "github.com/meridian-lms/meridian-lms/testing"
)

type stubStore struct {
	users map[string]*identity.User
}

func (s *stubStore) Lookup(ctx context.Context, id string) (*identity.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, httpx.ErrNotFound
}

func testCookieConfig() auth.CookieConfig {
	return auth.CookieConfig{
		SessionCookie: "test_session",
		CSRFCookie:    "test_csrf",
		CSRFHeader:    "x-csrf-token",
		SameSite:      http.SameSiteLaxMode,
	}
}

func newAuthenticator(t *testing.T, store *stubStore, cfg auth.CookieConfig) (*auth.Authenticator, *token.Codec) {
	t.Helper()
	codec, err := token.New("test-secret", false, nil)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return auth.NewAuthenticator(codec, store, cfg, nil), codec
}

func okHandler(captured *identity.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := identity.PrincipalFromContext(r.Context()); ok && captured != nil {
			*captured = p
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireRejectsMissingToken(t *testing.T) {
	authn, _ := newAuthenticator(t, &stubStore{}, testCookieConfig())

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	res := httptest.NewRecorder()
	authn.Require(okHandler(nil)).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRequireRejectsBadToken(t *testing.T) {
	authn, _ := newAuthenticator(t, &stubStore{}, testCookieConfig())

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "garbage"})
	res := httptest.NewRecorder()
	authn.Require(okHandler(nil)).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRequireRejectsDeletedAccount(t *testing.T) {
	authn, codec := newAuthenticator(t, &stubStore{}, testCookieConfig())
	signed, err := codec.Sign("ghost", identity.RoleStudent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: signed})
	res := httptest.NewRecorder()
	authn.Require(okHandler(nil)).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted account, got %d", res.Code)
	}
}

func TestRequireRejectsSuspendedAccount(t *testing.T) {
	store := &stubStore{users: map[string]*identity.User{
		"u1": {ID: "u1", Role: identity.RoleStudent, Suspended: true},
	}}
	authn, codec := newAuthenticator(t, store, testCookieConfig())
	signed, err := codec.Sign("u1", identity.RoleStudent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: signed})
	res := httptest.NewRecorder()
	authn.Require(okHandler(nil)).ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for suspended account, got %d", res.Code)
	}
}

func TestRequireUsesLiveRoleNotTokenRole(t *testing.T) {
	// The token says STUDENT but the store says INSTRUCTOR; the principal
	// must carry the store's answer.
	store := &stubStore{users: map[string]*identity.User{
		"u1": {ID: "u1", Role: identity.RoleInstructor},
	}}
	authn, codec := newAuthenticator(t, store, testCookieConfig())
	signed, err := codec.Sign("u1", identity.RoleStudent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var principal identity.Principal
	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: signed})
	res := httptest.NewRecorder()
	authn.Require(okHandler(&principal)).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if principal.Role != identity.RoleInstructor {
		t.Fatalf("expected live role INSTRUCTOR, got %q", principal.Role)
	}
}

func TestBearerFallbackDisabledByDefault(t *testing.T) {
	store := &stubStore{users: map[string]*identity.User{
		"u1": {ID: "u1", Role: identity.RoleStudent},
	}}
	authn, codec := newAuthenticator(t, store, testCookieConfig())
	signed, err := codec.Sign("u1", identity.RoleStudent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	res := httptest.NewRecorder()
	authn.Require(okHandler(nil)).ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with fallback disabled, got %d", res.Code)
	}
}

func TestBearerFallbackEnabled(t *testing.T) {
	store := &stubStore{users: map[string]*identity.User{
		"u1": {ID: "u1", Role: identity.RoleStudent},
	}}
	cfg := testCookieConfig()
	cfg.BearerFallback = true
	authn, codec := newAuthenticator(t, store, cfg)
	signed, err := codec.Sign("u1", identity.RoleStudent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	res := httptest.NewRecorder()
	authn.Require(okHandler(nil)).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 with fallback enabled, got %d", res.Code)
	}
}

func TestCookieWinsOverBearer(t *testing.T) {
	store := &stubStore{users: map[string]*identity.User{
		"cookie-user": {ID: "cookie-user", Role: identity.RoleStudent},
	}}
	cfg := testCookieConfig()
	cfg.BearerFallback = true
	authn, codec := newAuthenticator(t, store, cfg)
	cookieToken, err := codec.Sign("cookie-user", identity.RoleStudent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	bearerToken, err := codec.Sign("bearer-user", identity.RoleStudent)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	var principal identity.Principal
	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	res := httptest.NewRecorder()
	authn.Require(okHandler(&principal)).ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if principal.UserID != "cookie-user" {
		t.Fatalf("expected cookie token to win, got principal %q", principal.UserID)
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	gate := auth.RequireRole(identity.RoleInstructor, identity.RoleAdmin)

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/courses", nil)
		res := httptest.NewRecorder()
		gate(next).ServeHTTP(res, req)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", res.Code)
		}
	})

	t.Run("role not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/courses", nil)
		ctx := identity.ContextWithPrincipal(req.Context(), identity.Principal{UserID: "u1", Role: identity.RoleStudent})
		res := httptest.NewRecorder()
		gate(next).ServeHTTP(res, req.WithContext(ctx))
		if res.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", res.Code)
		}
	})

	t.Run("role allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/courses", nil)
		ctx := identity.ContextWithPrincipal(req.Context(), identity.Principal{UserID: "u1", Role: identity.RoleAdmin})
		res := httptest.NewRecorder()
		gate(next).ServeHTTP(res, req.WithContext(ctx))
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.Code)
		}
	})
}
