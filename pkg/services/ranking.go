package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/models"
	"github.com/serverdex/serverdex-engine/pkg/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RankingService builds filtered, sorted, paginated server listings.
type RankingService interface {
	Query(ctx context.Context, opts models.ListOptions) (*models.ListResult, error)
}

// rankingService implements RankingService.
type rankingService struct {
	serverRepo repositories.ServerRepository
	logger     *zap.Logger
}

// NewRankingService creates a new ranking service with dependencies.
func NewRankingService(serverRepo repositories.ServerRepository, logger *zap.Logger) RankingService {
	return &rankingService{
		serverRepo: serverRepo,
		logger:     logger,
	}
}

// Query returns one page of the filtered listing plus the total match count.
//
// Most combinations run as a native filter+order+offset+limit against the
// datastore. The exception is most-reviewed with no source filter: that sort
// groups by source priority (user before official before registry) ahead of
// rating volume, a composite the datastore's order-by cannot express, so the
// full filtered set is fetched, sorted in memory and sliced. Acceptable only
// while the filtered set fits comfortably in memory.
func (s *rankingService) Query(ctx context.Context, opts models.ListOptions) (*models.ListResult, error) {
	if !models.IsValidSort(opts.Sort) {
		opts.Sort = models.SortMostReviewed
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	sourceUnfiltered := opts.Filters.Source == "" || opts.Filters.Source == models.SourceAll

	var items []*models.Server
	var total int
	var err error

	if opts.Sort == models.SortMostReviewed && sourceUnfiltered {
		items, total, err = s.queryInMemory(ctx, opts.Filters, page, pageSize)
	} else {
		offset := (page - 1) * pageSize
		items, total, err = s.serverRepo.List(ctx, opts.Filters, opts.Sort, pageSize, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}

	if items == nil {
		items = []*models.Server{}
	}

	return &models.ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// queryInMemory fetches the entire filtered set, applies the source-grouped
// most-reviewed ordering and slices out the requested page.
func (s *rankingService) queryInMemory(ctx context.Context, filters models.ListFilters, page, pageSize int) ([]*models.Server, int, error) {
	servers, err := s.serverRepo.ListAllFiltered(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(servers, func(i, j int) bool {
		return lessBySourceThenReviews(servers[i], servers[j])
	})

	total := len(servers)
	start := (page - 1) * pageSize
	if start >= total {
		return []*models.Server{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return servers[start:end], total, nil
}

// lessBySourceThenReviews orders servers so that every item of a
// higher-priority source precedes every item of a lower-priority source
// regardless of rating volume; within a priority group the normal
// most-reviewed ordering applies (total ratings desc, combined score desc,
// name asc).
func lessBySourceThenReviews(a, b *models.Server) bool {
	pa, pb := models.SourcePriority(a.Source), models.SourcePriority(b.Source)
	if pa != pb {
		return pa < pb
	}
	if a.TotalRatings != b.TotalRatings {
		return a.TotalRatings > b.TotalRatings
	}
	if a.CombinedScore != b.CombinedScore {
		return a.CombinedScore > b.CombinedScore
	}
	return a.Name < b.Name
}

// Ensure rankingService implements RankingService at compile time.
var _ RankingService = (*rankingService)(nil)
