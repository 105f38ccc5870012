package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces limiter counters away from cache entries.
const keyPrefix = "ratelimit:"

// RedisStore counts hits in a shared Redis instance, giving a global limit
// across all process instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed counter store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr increments the counter for key. The increment that creates the key
// attaches an expiry equal to the window length; the remaining TTL is read
// back to compute the reset time.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	rkey := keyPrefix + key

	count, err := s.client.Incr(ctx, rkey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	if count == 1 {
		if err := s.client.PExpire(ctx, rkey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("failed to set counter expiry: %w", err)
		}
	}

	ttl, err := s.client.PTTL(ctx, rkey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read counter ttl: %w", err)
	}
	if ttl < 0 {
		// Key exists without an expiry (lost between INCR and PEXPIRE);
		// report a full window rather than a permanent counter.
		ttl = window
	}

	return count, ttl, nil
}

var _ Store = (*RedisStore)(nil)
