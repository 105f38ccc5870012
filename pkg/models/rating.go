package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is one user's scores (and optional text) for one server.
// At most one rating exists per (server_id, user_id) pair, enforced by a
// unique constraint.
type Rating struct {
	ID              uuid.UUID `json:"id"`
	ServerID        uuid.UUID `json:"server_id"`
	UserID          uuid.UUID `json:"user_id"`
	Trustworthiness int       `json:"trustworthiness"` // 1-5
	Usefulness      int       `json:"usefulness"`      // 1-5
	Text            string    `json:"text,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Rating status constants.
const (
	RatingStatusActive  = "active"
	RatingStatusFlagged = "flagged"
	RatingStatusRemoved = "removed"
)

// IsValidScore checks that a trustworthiness or usefulness score is in range.
func IsValidScore(score int) bool {
	return score >= 1 && score <= 5
}

// RatingAggregates holds the derived fields recomputed after every rating
// mutation. RecentRatings counts ratings created within the trailing 30 days
// of the recompute call.
type RatingAggregates struct {
	AvgTrustworthiness float64
	AvgUsefulness      float64
	TotalRatings       int
	CombinedScore      float64
	RecentRatings      int
}
