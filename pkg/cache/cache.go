package cache

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client is the subset of redis.Client the cache uses. Narrowed so tests can
// substitute a fake backend.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Cache provides best-effort memoization over Redis. Every entry may vanish
// at any time; callers must always have a source-of-truth fallback path.
// Backend unavailability on reads is indistinguishable from a miss, and
// write/delete failures are logged and swallowed.
type Cache struct {
	client Client
	logger *zap.Logger
}

// New creates a Cache over the given Redis client. A nil client yields a
// cache that misses everything, for environments without Redis.
func New(client *redis.Client, logger *zap.Logger) *Cache {
	c := &Cache{logger: logger}
	if client != nil {
		c.client = client
	}
	return c
}

// NewWithClient creates a Cache over any Client implementation.
func NewWithClient(client Client, logger *zap.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// Get retrieves and unmarshals the value at key into dest. Returns false on
// a miss, on backend errors, and on undecodable entries.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c.client == nil {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("Cache get failed, treating as miss",
				zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug("Cache entry undecodable, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}

	return true
}

// Set stores value at key with the given TTL. Best-effort: failures are
// logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Cache set skipped: marshal failed",
			zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Debug("Cache set failed",
			zap.String("key", key), zap.Error(err))
	}
}

// Delete removes the entry at key. Best-effort.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c.client == nil {
		return
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Debug("Cache delete failed",
			zap.String("key", key), zap.Error(err))
	}
}

// InvalidatePrefix scans for all keys sharing the prefix and deletes them in
// bulk. Allowed to be slow; intended for broad, infrequent invalidation.
func (c *Cache) InvalidatePrefix(ctx context.Context, prefix string) {
	if c.client == nil {
		return
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			c.logger.Debug("Cache prefix scan failed",
				zap.String("prefix", prefix), zap.Error(err))
			return
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Debug("Cache prefix delete failed",
					zap.String("prefix", prefix), zap.Error(err))
				return
			}
		}

		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// InvalidateUser removes every cached view derived from the user's rating
// data (dashboard, profile, ratings list). Called after every rating
// mutation.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) {
	for _, prefix := range userViewPrefixes(userID) {
		c.InvalidatePrefix(ctx, prefix)
	}
}
