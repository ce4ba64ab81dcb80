package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-lms/meridian-lms/internal/ratelimit"
	_ "github.com/meridian-lms/meridian-lms/testing"
)

func newRedisStore(t *testing.T) (*ratelimit.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ratelimit.NewRedisStore(client), mr
}

func TestRedisStoreIncr(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "login:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}
}

func TestRedisStoreWindowExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if _, err := store.Incr(ctx, "k", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if _, err := store.Incr(ctx, "k", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}

	// The TTL belongs to the first increment; the second must not push it out.
	mr.FastForward(time.Minute + time.Second)

	got, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected fresh window count 1, got %d", got)
	}
}

func TestRedisStoreReset(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if _, err := store.Incr(ctx, "a", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}
	if _, err := store.Incr(ctx, "b", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	got, err := store.Incr(ctx, "a", time.Minute)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if got != 1 {
		t.Fatalf("expected count 1 after reset, got %d", got)
	}
}

func TestRedisStoreErrorFailsOpenViaLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := ratelimit.NewRedisStore(client)
	mr.Close()

	if _, err := store.Incr(context.Background(), "k", time.Minute); err == nil {
		t.Fatal("expected error from closed redis")
	}
}
