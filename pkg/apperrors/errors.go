package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateRating = errors.New("user has already rated this server")
	ErrNotRatingOwner  = errors.New("rating belongs to another user")
	ErrInvalidScore    = errors.New("score must be between 1 and 5")
	ErrRateLimited     = errors.New("rate limit exceeded")
	// ErrAggregateWrite marks a failed aggregate recompute after the rating
	// write already succeeded; the stored aggregates are stale until the next
	// successful recompute, so callers must not report success.
	ErrAggregateWrite = errors.New("failed to update server aggregates")
)
