package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/apperrors"
	"github.com/serverdex/serverdex-engine/pkg/models"
	"github.com/serverdex/serverdex-engine/pkg/repositories"
)

// CacheInvalidator removes cached views derived from a user's rating data.
// Implemented by *cache.Cache.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
}

// RatingService handles rating mutations. Every successful write triggers
// the owning server's aggregate recompute and invalidation of the user's
// cached views.
type RatingService interface {
	Create(ctx context.Context, serverID, userID uuid.UUID, trustworthiness, usefulness int, text string) (*models.Rating, error)
	Update(ctx context.Context, ratingID, userID uuid.UUID, trustworthiness, usefulness int, text string) (*models.Rating, error)
	Delete(ctx context.Context, ratingID, userID uuid.UUID) error
}

// ratingService implements RatingService.
type ratingService struct {
	ratingRepo repositories.RatingRepository
	aggregates AggregateService
	cache      CacheInvalidator // may be nil
	logger     *zap.Logger
}

// NewRatingService creates a new rating service with dependencies. cache may
// be nil when no cache backend is configured.
func NewRatingService(ratingRepo repositories.RatingRepository, aggregates AggregateService, cache CacheInvalidator, logger *zap.Logger) RatingService {
	return &ratingService{
		ratingRepo: ratingRepo,
		aggregates: aggregates,
		cache:      cache,
		logger:     logger,
	}
}

// Create records a new rating for a server. Returns ErrDuplicateRating if
// the user has already rated it.
func (s *ratingService) Create(ctx context.Context, serverID, userID uuid.UUID, trustworthiness, usefulness int, text string) (*models.Rating, error) {
	if !models.IsValidScore(trustworthiness) || !models.IsValidScore(usefulness) {
		return nil, apperrors.ErrInvalidScore
	}

	rating := &models.Rating{
		ID:              uuid.New(),
		ServerID:        serverID,
		UserID:          userID,
		Trustworthiness: trustworthiness,
		Usefulness:      usefulness,
		Text:            text,
		Status:          models.RatingStatusActive,
	}

	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		return nil, err
	}

	if err := s.afterMutation(ctx, serverID, userID); err != nil {
		return nil, err
	}

	return rating, nil
}

// Update rewrites a rating's scores and text. Only the owner may update.
func (s *ratingService) Update(ctx context.Context, ratingID, userID uuid.UUID, trustworthiness, usefulness int, text string) (*models.Rating, error) {
	if !models.IsValidScore(trustworthiness) || !models.IsValidScore(usefulness) {
		return nil, apperrors.ErrInvalidScore
	}

	rating, err := s.ratingRepo.GetByID(ctx, ratingID)
	if err != nil {
		return nil, err
	}
	if rating.UserID != userID {
		return nil, apperrors.ErrNotRatingOwner
	}

	rating.Trustworthiness = trustworthiness
	rating.Usefulness = usefulness
	rating.Text = text

	if err := s.ratingRepo.Update(ctx, rating); err != nil {
		return nil, err
	}

	if err := s.afterMutation(ctx, rating.ServerID, userID); err != nil {
		return nil, err
	}

	return rating, nil
}

// Delete removes a rating. Only the owner may delete. The deletion cascades
// to no other rows but still triggers the server's recompute.
func (s *ratingService) Delete(ctx context.Context, ratingID, userID uuid.UUID) error {
	rating, err := s.ratingRepo.GetByID(ctx, ratingID)
	if err != nil {
		return err
	}
	if rating.UserID != userID {
		return apperrors.ErrNotRatingOwner
	}

	if err := s.ratingRepo.Delete(ctx, ratingID); err != nil {
		return err
	}

	return s.afterMutation(ctx, rating.ServerID, userID)
}

// afterMutation recomputes the owning server's aggregates and invalidates
// the user's cached views. A recompute failure fails the whole mutation so
// the caller never reports success while the visible aggregates are stale;
// cache invalidation stays best-effort.
func (s *ratingService) afterMutation(ctx context.Context, serverID, userID uuid.UUID) error {
	if err := s.aggregates.Recompute(ctx, serverID); err != nil {
		return fmt.Errorf("rating saved but recompute failed: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateUser(ctx, userID.String())
	}

	return nil
}

// Ensure ratingService implements RatingService at compile time.
var _ RatingService = (*ratingService)(nil)
