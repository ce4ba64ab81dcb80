package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisStore is a shared CounterStore for multi-instance deployments. The
// window boundary is carried by the key's TTL: the first increment of a
// fresh window sets the expiry, and redis dropping the key ends the window.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr atomically bumps the counter for key. INCR and the conditional
// EXPIRE run in one pipeline; EXPIRE NX only sets the TTL when the key has
// none, which is exactly the first increment of a window.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKeyPrefix+key)
	pipe.ExpireNX(ctx, redisKeyPrefix+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ratelimit: redis incr: %w", err)
	}
	return incr.Val(), nil
}

// Reset removes every limiter key. Scan-and-delete keeps Reset safe on a
// shared redis that also holds unrelated data.
func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("ratelimit: redis reset: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("ratelimit: redis reset scan: %w", err)
	}
	return nil
}

var _ CounterStore = (*RedisStore)(nil)
