package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/serverdex/serverdex-engine/pkg/apperrors"
	"github.com/serverdex/serverdex-engine/pkg/database"
	"github.com/serverdex/serverdex-engine/pkg/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// RatingRepository defines the interface for rating data access.
type RatingRepository interface {
	Create(ctx context.Context, rating *models.Rating) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Rating, error)
	Update(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AggregatesForServer computes mean scores, the total count and the
	// count of ratings created at or after recentSince, in one query.
	AggregatesForServer(ctx context.Context, serverID uuid.UUID, recentSince time.Time) (*models.RatingAggregates, error)
}

// ratingRepository implements RatingRepository using PostgreSQL.
type ratingRepository struct {
	db *database.DB
}

// NewRatingRepository creates a new rating repository.
func NewRatingRepository(db *database.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// Create inserts a new rating. Returns ErrDuplicateRating when the user has
// already rated the server.
func (r *ratingRepository) Create(ctx context.Context, rating *models.Rating) error {
	now := time.Now()
	rating.CreatedAt = now
	rating.UpdatedAt = now

	query := `
		INSERT INTO ratings (id, server_id, user_id, trustworthiness, usefulness, text, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		rating.ID,
		rating.ServerID,
		rating.UserID,
		rating.Trustworthiness,
		rating.Usefulness,
		rating.Text,
		rating.Status,
		rating.CreatedAt,
		rating.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicateRating
		}
		return fmt.Errorf("failed to create rating: %w", err)
	}

	return nil
}

// GetByID retrieves a rating by id.
func (r *ratingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Rating, error) {
	query := `
		SELECT id, server_id, user_id, trustworthiness, usefulness, text, status, created_at, updated_at
		FROM ratings
		WHERE id = $1`

	var rating models.Rating
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rating.ID,
		&rating.ServerID,
		&rating.UserID,
		&rating.Trustworthiness,
		&rating.Usefulness,
		&rating.Text,
		&rating.Status,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	return &rating, nil
}

// Update rewrites a rating's scores and text.
func (r *ratingRepository) Update(ctx context.Context, rating *models.Rating) error {
	rating.UpdatedAt = time.Now()

	query := `
		UPDATE ratings
		SET trustworthiness = $1, usefulness = $2, text = $3, status = $4, updated_at = $5
		WHERE id = $6`

	result, err := r.db.Exec(ctx, query,
		rating.Trustworthiness,
		rating.Usefulness,
		rating.Text,
		rating.Status,
		rating.UpdatedAt,
		rating.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// Delete removes a rating. Deletion cascades to nothing; the caller is
// responsible for triggering the server's aggregate recompute.
func (r *ratingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM ratings WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// AggregatesForServer computes the derived rating fields for one server.
// Zero ratings yield all-zero aggregates, never NULL.
func (r *ratingRepository) AggregatesForServer(ctx context.Context, serverID uuid.UUID, recentSince time.Time) (*models.RatingAggregates, error) {
	query := `
		SELECT COALESCE(AVG(trustworthiness), 0),
		       COALESCE(AVG(usefulness), 0),
		       COUNT(*),
		       COUNT(*) FILTER (WHERE created_at >= $2)
		FROM ratings
		WHERE server_id = $1`

	var agg models.RatingAggregates
	err := r.db.QueryRow(ctx, query, serverID, recentSince).Scan(
		&agg.AvgTrustworthiness,
		&agg.AvgUsefulness,
		&agg.TotalRatings,
		&agg.RecentRatings,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	return &agg, nil
}

// Ensure ratingRepository implements RatingRepository at compile time.
var _ RatingRepository = (*ratingRepository)(nil)
