package models

import "time"

// Sort mode constants for server listings.
const (
	SortTopRated     = "top-rated"
	SortNewest       = "newest"
	SortTrending     = "trending"
	SortMostReviewed = "most-reviewed"
)

// ValidSorts contains all valid sort modes.
var ValidSorts = []string{SortTopRated, SortNewest, SortTrending, SortMostReviewed}

// IsValidSort checks if the given sort mode is valid.
func IsValidSort(sort string) bool {
	for _, s := range ValidSorts {
		if s == sort {
			return true
		}
	}
	return false
}

// ListFilters holds the optional listing filters. All active filters combine
// with AND; Search matches case-insensitively across name, organization and
// description (OR within those fields).
type ListFilters struct {
	Search      string
	Category    string // empty = all categories
	Source      string // empty or SourceAll = all sources
	MinRating   float64
	MaxRating   float64 // 0 = unbounded
	CreatedFrom time.Time
	CreatedTo   time.Time
	HasRepoURL  *bool // nil = no filter
}

// ListOptions combines filters with sort and pagination.
type ListOptions struct {
	Filters  ListFilters
	Sort     string
	Page     int
	PageSize int
}

// ListResult is one page of a filtered, sorted listing. Total always counts
// the full filtered set, not just the returned page.
type ListResult struct {
	Items      []*Server `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"total_pages"`
}

// CategoryCounts maps each category to the number of matching servers, plus
// a CategoryTotalKey entry holding the overall match count. Every valid
// category is present, zero or not.
type CategoryCounts map[string]int

// CategoryTotalKey is the CategoryCounts entry holding the overall total.
const CategoryTotalKey = "total"
