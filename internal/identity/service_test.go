package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-lms/meridian-lms/internal/identity"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	_ "github.com/meridian-lms/meridian-lms/testing"
)

type memUserRepo struct {
	byEmail map[string]*identity.User
	byID    map[string]*identity.User
}

func newMemUserRepo(users ...*identity.User) *memUserRepo {
	r := &memUserRepo{
		byEmail: make(map[string]*identity.User),
		byID:    make(map[string]*identity.User),
	}
	for _, u := range users {
		r.byEmail[u.Email] = u
		r.byID[u.ID] = u
	}
	return r
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, httpx.ErrNotFound
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*identity.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, httpx.ErrNotFound
}

func (r *memUserRepo) SetSuspended(ctx context.Context, id string, suspended bool) error {
	u, ok := r.byID[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.Suspended = suspended
	return nil
}

func testUser(t *testing.T) *identity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &identity.User{
		ID:           "u1",
		Email:        "student@test.local",
		PasswordHash: string(hash),
		Role:         identity.RoleStudent,
	}
}

func TestAuthenticateSuccess(t *testing.T) {
	svc := identity.NewService(newMemUserRepo(testUser(t)))

	user, err := svc.Authenticate(context.Background(), "student@test.local", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	svc := identity.NewService(newMemUserRepo(testUser(t)))
	ctx := context.Background()

	_, errUnknown := svc.Authenticate(ctx, "nobody@test.local", "correct-horse")
	_, errWrongPass := svc.Authenticate(ctx, "student@test.local", "wrong-password")

	require.ErrorIs(t, errUnknown, httpx.ErrUnauthorized)
	require.ErrorIs(t, errWrongPass, httpx.ErrUnauthorized)
	// Same message for both, so a caller cannot probe account existence.
	require.Equal(t, errUnknown.Error(), errWrongPass.Error())
}

func TestSuspendTakesEffectOnNextLookup(t *testing.T) {
	repo := newMemUserRepo(testUser(t))
	svc := identity.NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Suspend(ctx, "u1", true))

	user, err := svc.Lookup(ctx, "u1")
	require.NoError(t, err)
	require.True(t, user.Suspended)

	require.NoError(t, svc.Suspend(ctx, "u1", false))
	user, err = svc.Lookup(ctx, "u1")
	require.NoError(t, err)
	require.False(t, user.Suspended)
}

func TestSuspendUnknownUser(t *testing.T) {
	svc := identity.NewService(newMemUserRepo())
	require.ErrorIs(t, svc.Suspend(context.Background(), "missing", true), httpx.ErrNotFound)
}

func TestRoleValid(t *testing.T) {
	for _, role := range []identity.Role{identity.RoleStudent, identity.RoleInstructor, identity.RoleAdmin} {
		require.True(t, role.Valid(), "role %s", role)
	}
	require.False(t, identity.Role("SUPERUSER").Valid())
	require.False(t, identity.Role("").Valid())
}
