package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/models"
)

// Mock implementations for testing

type mockServerRepoForRanking struct {
	servers []*models.Server

	listCalls    int
	listAllCalls int
	lastSort     string
	lastLimit    int
	lastOffset   int
	listErr      error
}

func (m *mockServerRepoForRanking) Create(ctx context.Context, server *models.Server) error {
	return nil
}

func (m *mockServerRepoForRanking) GetByID(ctx context.Context, id uuid.UUID) (*models.Server, error) {
	return nil, nil
}

func (m *mockServerRepoForRanking) List(ctx context.Context, filters models.ListFilters, sort string, limit, offset int) ([]*models.Server, int, error) {
	m.listCalls++
	m.lastSort = sort
	m.lastLimit = limit
	m.lastOffset = offset
	if m.listErr != nil {
		return nil, 0, m.listErr
	}

	end := offset + limit
	if offset > len(m.servers) {
		return nil, len(m.servers), nil
	}
	if end > len(m.servers) {
		end = len(m.servers)
	}
	return m.servers[offset:end], len(m.servers), nil
}

func (m *mockServerRepoForRanking) ListAllFiltered(ctx context.Context, filters models.ListFilters) ([]*models.Server, error) {
	m.listAllCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*models.Server, len(m.servers))
	copy(out, m.servers)
	return out, nil
}

func (m *mockServerRepoForRanking) CategoryCounts(ctx context.Context, filters models.ListFilters) (map[string]int, error) {
	return nil, nil
}

func (m *mockServerRepoForRanking) UpdateAggregates(ctx context.Context, id uuid.UUID, agg *models.RatingAggregates) error {
	return nil
}

func server(name, source string, totalRatings int, combinedScore float64) *models.Server {
	return &models.Server{
		ID:            uuid.New(),
		Name:          name,
		Source:        source,
		TotalRatings:  totalRatings,
		CombinedScore: combinedScore,
	}
}

func TestQuery_SourcePriorityDominatesRatingVolume(t *testing.T) {
	// A has zero ratings but a user source; it must still lead.
	repo := &mockServerRepoForRanking{servers: []*models.Server{
		server("C", models.SourceRegistry, 100, 4.9),
		server("B", models.SourceOfficial, 5, 4.5),
		server("A", models.SourceUser, 0, 0),
	}}
	svc := NewRankingService(repo, zap.NewNop())

	result, err := svc.Query(context.Background(), models.ListOptions{
		Sort: models.SortMostReviewed,
		// Source unset means "all", which triggers the grouped ordering.
	})
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.Equal(t, "A", result.Items[0].Name)
	assert.Equal(t, "B", result.Items[1].Name)
	assert.Equal(t, "C", result.Items[2].Name)
	assert.Equal(t, 1, repo.listAllCalls, "source=all + most-reviewed must use the in-memory path")
	assert.Zero(t, repo.listCalls)
}

func TestQuery_MostReviewedWithSourceFilterUsesNativePath(t *testing.T) {
	repo := &mockServerRepoForRanking{servers: []*models.Server{
		server("A", models.SourceUser, 3, 4),
	}}
	svc := NewRankingService(repo, zap.NewNop())

	_, err := svc.Query(context.Background(), models.ListOptions{
		Sort:     models.SortMostReviewed,
		Filters:  models.ListFilters{Source: models.SourceUser},
		Page:     2,
		PageSize: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
	assert.Zero(t, repo.listAllCalls)
	assert.Equal(t, models.SortMostReviewed, repo.lastSort)
	assert.Equal(t, 10, repo.lastLimit)
	assert.Equal(t, 10, repo.lastOffset)
}

func TestQuery_WithinGroupMostReviewedOrderingApplies(t *testing.T) {
	repo := &mockServerRepoForRanking{servers: []*models.Server{
		server("zeta", models.SourceUser, 5, 3.0),
		server("beta", models.SourceUser, 5, 3.0),
		server("alpha", models.SourceUser, 5, 4.0),
		server("omega", models.SourceUser, 9, 1.0),
	}}
	svc := NewRankingService(repo, zap.NewNop())

	result, err := svc.Query(context.Background(), models.ListOptions{Sort: models.SortMostReviewed})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Items))
	for _, s := range result.Items {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"omega", "alpha", "beta", "zeta"}, names)
}

func TestQuery_PagingMath(t *testing.T) {
	var servers []*models.Server
	for i := 0; i < 25; i++ {
		servers = append(servers, server(fmt.Sprintf("s%02d", i), models.SourceUser, 25-i, 3))
	}
	repo := &mockServerRepoForRanking{servers: servers}
	svc := NewRankingService(repo, zap.NewNop())

	result, err := svc.Query(context.Background(), models.ListOptions{
		Sort:     models.SortMostReviewed,
		Page:     3,
		PageSize: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 25, result.Total)
	assert.Equal(t, 3, result.TotalPages)
	assert.Equal(t, 3, result.Page)
	assert.Len(t, result.Items, 5)
}

func TestQuery_PageBeyondTotalPagesReturnsEmpty(t *testing.T) {
	repo := &mockServerRepoForRanking{servers: []*models.Server{
		server("only", models.SourceUser, 1, 2),
	}}
	svc := NewRankingService(repo, zap.NewNop())

	result, err := svc.Query(context.Background(), models.ListOptions{
		Sort:     models.SortMostReviewed,
		Page:     9,
		PageSize: 10,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Items)
	assert.NotNil(t, result.Items)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.TotalPages)
	assert.Equal(t, 9, result.Page, "page is not clamped to total pages")
}

func TestQuery_PageClampedToMinimumOne(t *testing.T) {
	repo := &mockServerRepoForRanking{servers: []*models.Server{
		server("only", models.SourceUser, 1, 2),
	}}
	svc := NewRankingService(repo, zap.NewNop())

	result, err := svc.Query(context.Background(), models.ListOptions{
		Sort: models.SortNewest,
		Page: -4,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Page)
	assert.Zero(t, repo.lastOffset)
}

func TestQuery_ConcatenatedPagesCoverWholeSetOnce(t *testing.T) {
	var servers []*models.Server
	for i := 0; i < 17; i++ {
		servers = append(servers, server(fmt.Sprintf("s%02d", i), models.SourceRegistry, i, 1))
	}
	repo := &mockServerRepoForRanking{servers: servers}
	svc := NewRankingService(repo, zap.NewNop())

	seen := make(map[uuid.UUID]bool)
	first, err := svc.Query(context.Background(), models.ListOptions{Sort: models.SortMostReviewed, Page: 1, PageSize: 5})
	require.NoError(t, err)

	for page := 1; page <= first.TotalPages; page++ {
		result, err := svc.Query(context.Background(), models.ListOptions{Sort: models.SortMostReviewed, Page: page, PageSize: 5})
		require.NoError(t, err)
		for _, s := range result.Items {
			assert.False(t, seen[s.ID], "pages must not overlap")
			seen[s.ID] = true
		}
	}

	assert.Len(t, seen, first.Total)
}

func TestQuery_InvalidSortFallsBackToMostReviewed(t *testing.T) {
	repo := &mockServerRepoForRanking{}
	svc := NewRankingService(repo, zap.NewNop())

	_, err := svc.Query(context.Background(), models.ListOptions{
		Sort:    "popularity-contest",
		Filters: models.ListFilters{Source: models.SourceRegistry},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SortMostReviewed, repo.lastSort)
}

func TestQuery_PageSizeClamped(t *testing.T) {
	repo := &mockServerRepoForRanking{}
	svc := NewRankingService(repo, zap.NewNop())

	_, err := svc.Query(context.Background(), models.ListOptions{
		Sort:     models.SortNewest,
		PageSize: 10000,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.lastLimit)

	_, err = svc.Query(context.Background(), models.ListOptions{Sort: models.SortNewest})
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)
}
