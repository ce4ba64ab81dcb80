// Package ratelimit implements fixed-window request limiting over a
// pluggable counter store.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// CounterStore is the storage medium behind a limiter. Incr must be atomic
// per key: it bumps the key's counter within the current fixed window and
// returns the post-increment count, resetting to a fresh window with count 1
// when the key is new or its window has elapsed. Reset clears all counters
// and exists for test harnesses.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context) error
}

// KeyFunc derives the bucket key for a request.
type KeyFunc func(r *http.Request) string

// Config describes one limiter instance.
type Config struct {
	Window  time.Duration
	Max     int64
	Message string
	KeyFunc KeyFunc
}

// Limiter rejects requests whose key exceeds Max within Window.
type Limiter struct {
	cfg    Config
	store  CounterStore
	logger *slog.Logger
}

// New constructs a Limiter. A nil KeyFunc defaults to the client IP.
func New(cfg Config, store CounterStore, logger *slog.Logger) *Limiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.Message == "" {
		cfg.Message = "too many requests"
	}
	return &Limiter{cfg: cfg, store: store, logger: logger}
}

// Allow counts one request for key and reports whether it is within budget.
// The over-limit request is still counted once for back-pressure signaling.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Incr(ctx, key, l.cfg.Window)
	if err != nil {
		return false, err
	}
	return count <= l.cfg.Max, nil
}

// Middleware applies the limiter to an HTTP subtree. A store failure fails
// open with a logged warning: this guard protects capacity, not secrets,
// and must not turn a counter outage into a full outage.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := l.Allow(r.Context(), l.cfg.KeyFunc(r))
		if err != nil {
			if l.logger != nil {
				l.logger.Warn("rate limit store unavailable", slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			httpx.Fail(w, http.StatusTooManyRequests, httpx.CodeRateLimited, l.cfg.Message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// KeyByIP keys buckets by the client IP. It expects the RealIP middleware
// to have normalized RemoteAddr already.
func KeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
