package identity

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Service wraps identity business rules.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Every failure mode
// collapses to the same unauthorized error so login cannot be used to probe
// which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", httpx.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", httpx.ErrUnauthorized)
	}
	return user, nil
}

// Lookup returns the current role and suspension state for an account.
// Called on every authenticated request; must stay a live read.
func (s *Service) Lookup(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// Suspend flips the suspension flag. Suspension takes effect on the
// account's very next request, not at next login.
func (s *Service) Suspend(ctx context.Context, id string, suspended bool) error {
	return s.repo.SetSuspended(ctx, id, suspended)
}
