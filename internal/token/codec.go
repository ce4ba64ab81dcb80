// Package token signs and verifies opaque session tokens.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meridian-lms/meridian-lms/internal/identity"
)

// TTL is the fixed lifetime of every issued token. There is no revocation
// store; expiry is the only invalidation mechanism.
const TTL = 7 * 24 * time.Hour

// ErrInvalidToken is the single failure returned by Verify. Signature
// mismatch, malformed payload and elapsed expiry are deliberately not
// differentiated so the endpoint cannot be used as a verification oracle.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload embedded in a session token. Role is a hint only:
// the authenticator re-resolves the current role from the identity store on
// every request, so a promotion or demotion takes effect immediately.
type Claims struct {
	jwt.RegisteredClaims
	Role identity.Role `json:"rol"`
}

// Codec signs and verifies session tokens with a process-wide HS256 secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// New constructs a Codec. An empty secret is fatal in production; outside
// production a random per-process secret is generated and a warning logged,
// which keeps local development working while invalidating tokens across
// restarts.
func New(secret string, production bool, logger *slog.Logger) (*Codec, error) {
	if secret == "" {
		if production {
			return nil, errors.New("token: signing secret required in production")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("token: generate fallback secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		if logger != nil {
			logger.Warn("token signing secret missing, using random per-process secret")
		}
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Sign issues a token for the given user with the fixed TTL.
func (c *Codec) Sign(userID string, role identity.Role) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the claims. Every failure
// collapses to ErrInvalidToken.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
