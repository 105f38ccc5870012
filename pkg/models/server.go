package models

import (
	"time"

	"github.com/google/uuid"
)

// Server represents a listed server with denormalized rating aggregates.
// The aggregate fields (avg_trustworthiness, avg_usefulness, total_ratings,
// combined_score, recent_ratings_count) are owned by the aggregate service
// and only ever written together in a single update.
type Server struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Organization       string    `json:"organization"`
	Description        string    `json:"description"`
	RepoURL            string    `json:"repo_url,omitempty"`
	Category           string    `json:"category"`
	Source             string    `json:"source"`
	AvgTrustworthiness float64   `json:"avg_trustworthiness"`
	AvgUsefulness      float64   `json:"avg_usefulness"`
	TotalRatings       int       `json:"total_ratings"`
	CombinedScore      float64   `json:"combined_score"`
	RecentRatingsCount int       `json:"recent_ratings_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Source constants for server provenance.
const (
	SourceRegistry = "registry"
	SourceUser     = "user"
	SourceOfficial = "official"

	// SourceAll is not a stored value; it is the filter wildcard meaning
	// "no source filter".
	SourceAll = "all"
)

// ValidSources contains all valid stored source values.
var ValidSources = []string{SourceRegistry, SourceUser, SourceOfficial}

// IsValidSource checks if the given source is a valid stored value.
func IsValidSource(source string) bool {
	for _, s := range ValidSources {
		if s == source {
			return true
		}
	}
	return false
}

// SourcePriority returns the rank used when grouping listings by provenance:
// user-submitted servers precede official ones, which precede registry
// imports. Unknown sources sort last.
func SourcePriority(source string) int {
	switch source {
	case SourceUser:
		return 1
	case SourceOfficial:
		return 2
	case SourceRegistry:
		return 3
	default:
		return 4
	}
}

// Category constants. Categories are a closed, mutually exclusive partition;
// anything unrecognized lands in CategoryOther at write time.
const (
	CategorySearch        = "search"
	CategoryDatabase      = "database"
	CategoryDevTools      = "devtools"
	CategoryProductivity  = "productivity"
	CategoryCommunication = "communication"
	CategoryFinance       = "finance"
	CategoryAI            = "ai"
	CategoryOther         = "other"
)

// ValidCategories contains all valid category values.
var ValidCategories = []string{
	CategorySearch,
	CategoryDatabase,
	CategoryDevTools,
	CategoryProductivity,
	CategoryCommunication,
	CategoryFinance,
	CategoryAI,
	CategoryOther,
}

// IsValidCategory checks if the given category is valid.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}

// NormalizeCategory maps unknown or empty categories to the "other" bucket.
func NormalizeCategory(category string) string {
	if IsValidCategory(category) {
		return category
	}
	return CategoryOther
}
