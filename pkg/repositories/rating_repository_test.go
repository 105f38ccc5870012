package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serverdex/serverdex-engine/pkg/apperrors"
	"github.com/serverdex/serverdex-engine/pkg/models"
	"github.com/serverdex/serverdex-engine/pkg/testhelpers"
)

func seedRating(t *testing.T, repo RatingRepository, serverID, userID uuid.UUID, trust, useful int) *models.Rating {
	t.Helper()
	rating := &models.Rating{
		ID:              uuid.New(),
		ServerID:        serverID,
		UserID:          userID,
		Trustworthiness: trust,
		Usefulness:      useful,
		Text:            "fine",
		Status:          models.RatingStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), rating))
	return rating
}

func TestRatingRepository_CreateAndGet(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	truncateTables(t, testDB)
	serverRepo := NewServerRepository(testDB.DB)
	repo := NewRatingRepository(testDB.DB)
	ctx := context.Background()

	server := seedServer(t, serverRepo, "rated", models.CategoryAI, models.SourceUser, "")
	created := seedRating(t, repo, server.ID, uuid.New(), 5, 3)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, server.ID, got.ServerID)
	assert.Equal(t, 5, got.Trustworthiness)
	assert.Equal(t, 3, got.Usefulness)
	assert.Equal(t, models.RatingStatusActive, got.Status)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRatingRepository_DuplicateUserServerPair(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	truncateTables(t, testDB)
	serverRepo := NewServerRepository(testDB.DB)
	repo := NewRatingRepository(testDB.DB)
	ctx := context.Background()

	server := seedServer(t, serverRepo, "once-only", models.CategoryAI, models.SourceUser, "")
	userID := uuid.New()
	seedRating(t, repo, server.ID, userID, 4, 4)

	err := repo.Create(ctx, &models.Rating{
		ID:              uuid.New(),
		ServerID:        server.ID,
		UserID:          userID,
		Trustworthiness: 1,
		Usefulness:      1,
		Status:          models.RatingStatusActive,
	})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRating)

	// The same user may still rate a different server.
	other := seedServer(t, serverRepo, "another", models.CategoryAI, models.SourceUser, "")
	seedRating(t, repo, other.ID, userID, 2, 2)
}

func TestRatingRepository_UpdateAndDelete(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	truncateTables(t, testDB)
	serverRepo := NewServerRepository(testDB.DB)
	repo := NewRatingRepository(testDB.DB)
	ctx := context.Background()

	server := seedServer(t, serverRepo, "editable", models.CategoryDevTools, models.SourceUser, "")
	rating := seedRating(t, repo, server.ID, uuid.New(), 2, 2)

	rating.Trustworthiness = 5
	rating.Text = "improved a lot"
	require.NoError(t, repo.Update(ctx, rating))

	got, err := repo.GetByID(ctx, rating.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Trustworthiness)
	assert.Equal(t, "improved a lot", got.Text)

	require.NoError(t, repo.Delete(ctx, rating.ID))
	_, err = repo.GetByID(ctx, rating.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, rating.ID), apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, rating), apperrors.ErrNotFound)
}

func TestRatingRepository_AggregatesForServer(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	truncateTables(t, testDB)
	serverRepo := NewServerRepository(testDB.DB)
	repo := NewRatingRepository(testDB.DB)
	ctx := context.Background()

	server := seedServer(t, serverRepo, "aggregated", models.CategorySearch, models.SourceOfficial, "")
	seedRating(t, repo, server.ID, uuid.New(), 5, 3)
	seedRating(t, repo, server.ID, uuid.New(), 3, 5)
	seedRating(t, repo, server.ID, uuid.New(), 4, 4)

	past := time.Now().Add(-time.Hour)
	agg, err := repo.AggregatesForServer(ctx, server.ID, past)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, agg.AvgTrustworthiness, 0.0001)
	assert.InDelta(t, 4.0, agg.AvgUsefulness, 0.0001)
	assert.Equal(t, 3, agg.TotalRatings)
	assert.Equal(t, 3, agg.RecentRatings, "all ratings created after the window start")

	future := time.Now().Add(time.Hour)
	agg, err = repo.AggregatesForServer(ctx, server.ID, future)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.TotalRatings)
	assert.Zero(t, agg.RecentRatings)
}

func TestRatingRepository_AggregatesForServerWithNoRatings(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	truncateTables(t, testDB)
	serverRepo := NewServerRepository(testDB.DB)
	repo := NewRatingRepository(testDB.DB)

	server := seedServer(t, serverRepo, "unrated", models.CategoryOther, models.SourceRegistry, "")

	agg, err := repo.AggregatesForServer(context.Background(), server.ID, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Zero(t, agg.AvgTrustworthiness)
	assert.Zero(t, agg.AvgUsefulness)
	assert.Zero(t, agg.TotalRatings)
	assert.Zero(t, agg.RecentRatings)
}
