package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/apperrors"
	"github.com/serverdex/serverdex-engine/pkg/models"
	"github.com/serverdex/serverdex-engine/pkg/repositories"
)

// recentWindowDays is the trailing window counted into recent_ratings_count.
const recentWindowDays = 30

// AggregateService recomputes a server's derived rating statistics after any
// rating mutation.
type AggregateService interface {
	Recompute(ctx context.Context, serverID uuid.UUID) error
}

// aggregateService implements AggregateService.
type aggregateService struct {
	serverRepo repositories.ServerRepository
	ratingRepo repositories.RatingRepository
	now        func() time.Time
	logger     *zap.Logger
}

// NewAggregateService creates a new aggregate service with dependencies.
func NewAggregateService(serverRepo repositories.ServerRepository, ratingRepo repositories.RatingRepository, logger *zap.Logger) AggregateService {
	return &aggregateService{
		serverRepo: serverRepo,
		ratingRepo: ratingRepo,
		now:        time.Now,
		logger:     logger,
	}
}

// Recompute reads the server's rating aggregates and writes all five derived
// fields back in one update. Idempotent: two calls with no intervening
// mutation yield identical output.
//
// The read and write are not wrapped in the same transaction as the rating
// mutation that triggered them. Two concurrent mutations on the same server
// can interleave so that the losing recompute overwrites the winning one
// with a stale snapshot; last writer wins. The written row is still
// internally consistent because all five fields come from one read.
func (s *aggregateService) Recompute(ctx context.Context, serverID uuid.UUID) error {
	recentSince := s.now().AddDate(0, 0, -recentWindowDays)

	agg, err := s.ratingRepo.AggregatesForServer(ctx, serverID, recentSince)
	if err != nil {
		// Read failed: keep the prior aggregates (stale but not corrupted).
		return fmt.Errorf("failed to read rating aggregates: %w", err)
	}

	if agg.TotalRatings == 0 {
		*agg = models.RatingAggregates{}
	} else {
		agg.CombinedScore = (agg.AvgTrustworthiness + agg.AvgUsefulness) / 2
	}

	if err := s.serverRepo.UpdateAggregates(ctx, serverID, agg); err != nil {
		s.logger.Error("Aggregate write failed after successful read",
			zap.String("server_id", serverID.String()),
			zap.Error(err))
		return fmt.Errorf("%w: %v", apperrors.ErrAggregateWrite, err)
	}

	return nil
}

// Ensure aggregateService implements AggregateService at compile time.
var _ AggregateService = (*aggregateService)(nil)
