package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/cache"
	"github.com/serverdex/serverdex-engine/pkg/config"
	"github.com/serverdex/serverdex-engine/pkg/models"
	"github.com/serverdex/serverdex-engine/pkg/services"
)

// ListResponse is the payload of GET /api/servers.
type ListResponse struct {
	Items      []*models.Server      `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"total_pages"`
	Categories models.CategoryCounts `json:"categories"`
}

// ServersHandler serves the filtered, sorted, paginated server listing.
type ServersHandler struct {
	cfg        *config.Config
	ranking    services.RankingService
	categories services.CategoryService
	cache      *cache.Cache
	logger     *zap.Logger
}

// NewServersHandler creates a new ServersHandler with dependencies.
func NewServersHandler(cfg *config.Config, ranking services.RankingService, categories services.CategoryService, c *cache.Cache, logger *zap.Logger) *ServersHandler {
	return &ServersHandler{
		cfg:        cfg,
		ranking:    ranking,
		categories: categories,
		cache:      c,
		logger:     logger,
	}
}

// RegisterRoutes registers the server listing routes on the given mux.
func (h *ServersHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/servers", h.List)
}

// List handles GET /api/servers. The response is served from the cache when
// possible and written back with the configured TTL; the cache is
// best-effort, so a cold or unavailable cache just means a datastore query.
func (h *ServersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := parseListOptions(r)

	key := listCacheKey(opts)
	var cached ListResponse
	if h.cache.Get(ctx, key, &cached) {
		if err := WriteJSON(w, http.StatusOK, cached); err != nil {
			h.logger.Error("Failed to encode cached listing", zap.Error(err))
		}
		return
	}

	result, err := h.ranking.Query(ctx, opts)
	if err != nil {
		h.logger.Error("Listing query failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to list servers")
		return
	}

	counts, err := h.categories.Counts(ctx, opts.Filters)
	if err != nil {
		h.logger.Error("Category counts failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "failed to list servers")
		return
	}

	response := ListResponse{
		Items:      result.Items,
		Total:      result.Total,
		Page:       result.Page,
		TotalPages: result.TotalPages,
		Categories: counts,
	}

	h.cache.Set(ctx, key, response, h.cfg.Cache.ListTTL())

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode listing", zap.Error(err))
	}
}

// parseListOptions reads filter/sort/page parameters from the query string.
// Malformed or out-of-range values are replaced with permissive defaults
// rather than rejected: an unparseable rating bound becomes 0 (unbounded),
// a bad date is dropped, unknown sorts fall back to most-reviewed.
func parseListOptions(r *http.Request) models.ListOptions {
	q := r.URL.Query()

	opts := models.ListOptions{
		Sort:     q.Get("sort"),
		Page:     parseIntDefault(q.Get("page"), 1),
		PageSize: parseIntDefault(q.Get("page_size"), 0),
	}
	if !models.IsValidSort(opts.Sort) {
		opts.Sort = models.SortMostReviewed
	}

	f := &opts.Filters
	f.Search = q.Get("q")

	if category := q.Get("category"); models.IsValidCategory(category) {
		f.Category = category
	}
	if source := q.Get("source"); models.IsValidSource(source) {
		f.Source = source
	}

	f.MinRating = parseFloatDefault(q.Get("min_rating"), 0)
	f.MaxRating = parseFloatDefault(q.Get("max_rating"), 0)

	// Date filters have date-only granularity, normalized to the bounds of
	// the named days.
	if from, err := time.Parse("2006-01-02", q.Get("created_from")); err == nil {
		f.CreatedFrom = from
	}
	if to, err := time.Parse("2006-01-02", q.Get("created_to")); err == nil {
		f.CreatedTo = to.Add(24*time.Hour - time.Nanosecond)
	}

	if v := q.Get("has_repo_url"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.HasRepoURL = &b
		}
	}

	return opts
}

// listCacheKey renders the full normalized option set into a cache key so
// distinct views never share an entry.
func listCacheKey(opts models.ListOptions) string {
	f := opts.Filters
	hasRepo := ""
	if f.HasRepoURL != nil {
		hasRepo = strconv.FormatBool(*f.HasRepoURL)
	}
	return cache.Key("servers", "list",
		opts.Sort,
		strconv.Itoa(opts.Page),
		strconv.Itoa(opts.PageSize),
		f.Search,
		f.Category,
		f.Source,
		fmt.Sprintf("%g-%g", f.MinRating, f.MaxRating),
		formatDate(f.CreatedFrom),
		formatDate(f.CreatedTo),
		hasRepo,
	)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFloatDefault(s string, def float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}
