package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/models"
	"github.com/serverdex/serverdex-engine/pkg/repositories"
)

// CategoryService counts matching servers per category under the same filter
// predicate as the ranking service.
type CategoryService interface {
	Counts(ctx context.Context, filters models.ListFilters) (models.CategoryCounts, error)
}

// categoryService implements CategoryService.
type categoryService struct {
	serverRepo repositories.ServerRepository
	logger     *zap.Logger
}

// NewCategoryService creates a new category service with dependencies.
func NewCategoryService(serverRepo repositories.ServerRepository, logger *zap.Logger) CategoryService {
	return &categoryService{
		serverRepo: serverRepo,
		logger:     logger,
	}
}

// Counts applies every active filter except category and pagination, groups
// the matches by category and returns a count per category plus the total.
// Categories with zero matches are present with value 0. Category is a
// total, mutually exclusive partition, so the per-category counts always sum
// to the total.
func (s *categoryService) Counts(ctx context.Context, filters models.ListFilters) (models.CategoryCounts, error) {
	filters.Category = ""

	grouped, err := s.serverRepo.CategoryCounts(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	counts := make(models.CategoryCounts, len(models.ValidCategories)+1)
	for _, category := range models.ValidCategories {
		counts[category] = 0
	}

	total := 0
	for category, count := range grouped {
		counts[category] = count
		total += count
	}
	counts[models.CategoryTotalKey] = total

	return counts, nil
}

// Ensure categoryService implements CategoryService at compile time.
var _ CategoryService = (*categoryService)(nil)
