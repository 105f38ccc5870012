package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter throttles actions per subject using fixed windows. The primary
// path counts in Redis (shared across instances); when Redis is unreachable
// or unconfigured the limiter degrades to a process-local store.
type Limiter struct {
	primary  Store // nil when Redis is not configured
	fallback Store
	logger   *zap.Logger
}

// New creates a Limiter. client may be nil, in which case only the local
// fallback is used.
func New(client *redis.Client, clock Clock, gcInterval time.Duration, logger *zap.Logger) *Limiter {
	l := &Limiter{
		fallback: NewLocalStore(clock, gcInterval),
		logger:   logger,
	}
	if client != nil {
		l.primary = NewRedisStore(client)
	}
	return l
}

// NewWithStores creates a Limiter over explicit stores. primary may be nil.
func NewWithStores(primary, fallback Store, logger *zap.Logger) *Limiter {
	return &Limiter{primary: primary, fallback: fallback, logger: logger}
}

// Check records one hit against key and reports whether it stays within
// limit hits per window. Rejected calls still consume nothing further; the
// caller should wait Result.ResetIn before retrying.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) Result {
	store := l.primary
	if store == nil {
		store = l.fallback
	}

	count, resetIn, err := store.Incr(ctx, key, window)
	if err != nil {
		// Degrade to local counting rather than failing the request.
		l.logger.Warn("Rate limit backend unavailable, using local fallback",
			zap.String("key", key), zap.Error(err))
		count, resetIn, _ = l.fallback.Incr(ctx, key, window)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= int64(limit),
		Remaining: remaining,
		ResetIn:   resetIn,
	}
}
