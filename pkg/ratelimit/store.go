package ratelimit

import (
	"context"
	"strings"
	"time"
)

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Store counts hits against a key within a fixed window. Incr increments the
// counter for key, starting a new window of the given length on the first
// increment, and reports the new count plus the time until the window
// resets.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

// Key joins subject/action parts with ':' into a rate limit key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
