package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/serverdex/serverdex-engine/pkg/apperrors"
	"github.com/serverdex/serverdex-engine/pkg/database"
	"github.com/serverdex/serverdex-engine/pkg/models"
)

// ServerRepository defines the interface for server data access.
type ServerRepository interface {
	Create(ctx context.Context, server *models.Server) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Server, error)
	// List returns one natively sorted page plus the total count under the
	// same filter predicate.
	List(ctx context.Context, filters models.ListFilters, sort string, limit, offset int) ([]*models.Server, int, error)
	// ListAllFiltered returns the entire filtered set, unsorted and
	// unpaginated, for sort modes the datastore cannot express natively.
	ListAllFiltered(ctx context.Context, filters models.ListFilters) ([]*models.Server, error)
	// CategoryCounts groups the filtered set by category.
	CategoryCounts(ctx context.Context, filters models.ListFilters) (map[string]int, error)
	// UpdateAggregates writes all five derived rating fields in one update.
	UpdateAggregates(ctx context.Context, id uuid.UUID, agg *models.RatingAggregates) error
}

// serverRepository implements ServerRepository using PostgreSQL.
type serverRepository struct {
	db *database.DB
}

// NewServerRepository creates a new server repository.
func NewServerRepository(db *database.DB) ServerRepository {
	return &serverRepository{db: db}
}

const serverColumns = `id, name, organization, description, repo_url, category, source,
		avg_trustworthiness, avg_usefulness, total_ratings, combined_score,
		recent_ratings_count, created_at, updated_at`

// Create inserts a new server with zeroed aggregates.
func (r *serverRepository) Create(ctx context.Context, server *models.Server) error {
	now := time.Now()
	server.CreatedAt = now
	server.UpdatedAt = now
	server.Category = models.NormalizeCategory(server.Category)

	query := `
		INSERT INTO servers (id, name, organization, description, repo_url, category, source,
			avg_trustworthiness, avg_usefulness, total_ratings, combined_score,
			recent_ratings_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, 0, 0, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		server.ID,
		server.Name,
		server.Organization,
		server.Description,
		server.RepoURL,
		server.Category,
		server.Source,
		server.CreatedAt,
		server.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return nil
}

// GetByID retrieves a server by id.
func (r *serverRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = $1`

	server, err := scanServer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get server: %w", err)
	}

	return server, nil
}

// List returns one page ordered by the given sort mode, plus the total count
// under the same predicate.
func (r *serverRepository) List(ctx context.Context, filters models.ListFilters, sort string, limit, offset int) ([]*models.Server, int, error) {
	where, args := buildFilterWhere(filters)

	var total int
	countQuery := `SELECT COUNT(*) FROM servers` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count servers: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM servers%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		serverColumns, where, orderBy(sort), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	servers, err := scanServers(rows)
	if err != nil {
		return nil, 0, err
	}

	return servers, total, nil
}

// ListAllFiltered returns the full filtered set with no ordering or paging.
func (r *serverRepository) ListAllFiltered(ctx context.Context, filters models.ListFilters) ([]*models.Server, error) {
	where, args := buildFilterWhere(filters)

	query := `SELECT ` + serverColumns + ` FROM servers` + where

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	return scanServers(rows)
}

// CategoryCounts groups the filtered set by category.
func (r *serverRepository) CategoryCounts(ctx context.Context, filters models.ListFilters) (map[string]int, error) {
	where, args := buildFilterWhere(filters)

	query := `SELECT category, COUNT(*) FROM servers` + where + ` GROUP BY category`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[category] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	return counts, nil
}

// UpdateAggregates writes all five derived rating fields in a single update.
func (r *serverRepository) UpdateAggregates(ctx context.Context, id uuid.UUID, agg *models.RatingAggregates) error {
	query := `
		UPDATE servers
		SET avg_trustworthiness = $1,
		    avg_usefulness = $2,
		    total_ratings = $3,
		    combined_score = $4,
		    recent_ratings_count = $5,
		    updated_at = $6
		WHERE id = $7`

	result, err := r.db.Exec(ctx, query,
		agg.AvgTrustworthiness,
		agg.AvgUsefulness,
		agg.TotalRatings,
		agg.CombinedScore,
		agg.RecentRatings,
		time.Now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update aggregates: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// buildFilterWhere renders the active filters as a WHERE clause. All filters
// combine with AND; the free-text filter ORs across name, organization and
// description.
func buildFilterWhere(f models.ListFilters) (string, []any) {
	var clauses []string
	var args []any

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(name ILIKE $%d OR organization ILIKE $%d OR description ILIKE $%d)", n, n, n))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Source != "" && f.Source != models.SourceAll {
		args = append(args, f.Source)
		clauses = append(clauses, fmt.Sprintf("source = $%d", len(args)))
	}
	if f.MinRating > 0 {
		args = append(args, f.MinRating)
		clauses = append(clauses, fmt.Sprintf("combined_score >= $%d", len(args)))
	}
	if f.MaxRating > 0 {
		args = append(args, f.MaxRating)
		clauses = append(clauses, fmt.Sprintf("combined_score <= $%d", len(args)))
	}
	if !f.CreatedFrom.IsZero() {
		args = append(args, f.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !f.CreatedTo.IsZero() {
		args = append(args, f.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if f.HasRepoURL != nil {
		if *f.HasRepoURL {
			clauses = append(clauses, "repo_url <> ''")
		} else {
			clauses = append(clauses, "repo_url = ''")
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// orderBy maps a sort mode to its native ORDER BY expression. The
// source-grouped variant of most-reviewed cannot be expressed here and is
// sorted in memory by the ranking service.
func orderBy(sort string) string {
	switch sort {
	case models.SortTopRated:
		return "combined_score DESC, total_ratings DESC, name ASC"
	case models.SortNewest:
		return "created_at DESC, name ASC"
	case models.SortTrending:
		return "recent_ratings_count DESC, combined_score DESC, name ASC"
	default: // most-reviewed
		return "total_ratings DESC, combined_score DESC, name ASC"
	}
}

func scanServer(row pgx.Row) (*models.Server, error) {
	var server models.Server
	err := row.Scan(
		&server.ID,
		&server.Name,
		&server.Organization,
		&server.Description,
		&server.RepoURL,
		&server.Category,
		&server.Source,
		&server.AvgTrustworthiness,
		&server.AvgUsefulness,
		&server.TotalRatings,
		&server.CombinedScore,
		&server.RecentRatingsCount,
		&server.CreatedAt,
		&server.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &server, nil
}

func scanServers(rows pgx.Rows) ([]*models.Server, error) {
	var servers []*models.Server
	for rows.Next() {
		server, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		servers = append(servers, server)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating servers: %w", err)
	}

	return servers, nil
}

// Ensure serverRepository implements ServerRepository at compile time.
var _ ServerRepository = (*serverRepository)(nil)
