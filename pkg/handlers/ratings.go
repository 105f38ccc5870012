package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/serverdex/serverdex-engine/pkg/apperrors"
	"github.com/serverdex/serverdex-engine/pkg/config"
	"github.com/serverdex/serverdex-engine/pkg/ratelimit"
	"github.com/serverdex/serverdex-engine/pkg/services"
)

// RateLimiter is the limiter surface the handlers need. Implemented by
// *ratelimit.Limiter.
type RateLimiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) ratelimit.Result
}

// RatingRequest is the body of rating create/update calls.
type RatingRequest struct {
	Trustworthiness int    `json:"trustworthiness"`
	Usefulness      int    `json:"usefulness"`
	Text            string `json:"text"`
}

// RatingsHandler handles rating mutations. Every mutation passes through the
// rate limiter before touching storage.
type RatingsHandler struct {
	cfg     *config.Config
	ratings services.RatingService
	limiter RateLimiter
	logger  *zap.Logger
}

// NewRatingsHandler creates a new RatingsHandler with dependencies.
func NewRatingsHandler(cfg *config.Config, ratings services.RatingService, limiter RateLimiter, logger *zap.Logger) *RatingsHandler {
	return &RatingsHandler{
		cfg:     cfg,
		ratings: ratings,
		limiter: limiter,
		logger:  logger,
	}
}

// RegisterRoutes registers the rating mutation routes on the given mux.
func (h *RatingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/servers/{id}/ratings", h.Create)
	mux.HandleFunc("PUT /api/ratings/{id}", h.Update)
	mux.HandleFunc("DELETE /api/ratings/{id}", h.Delete)
}

// Create handles POST /api/servers/{id}/ratings.
func (h *RatingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.gate(w, r)
	if !ok {
		return
	}

	serverID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid server id")
		return
	}

	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	rating, err := h.ratings.Create(r.Context(), serverID, userID, req.Trustworthiness, req.Usefulness, req.Text)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, rating); err != nil {
		h.logger.Error("Failed to encode rating", zap.Error(err))
	}
}

// Update handles PUT /api/ratings/{id}.
func (h *RatingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.gate(w, r)
	if !ok {
		return
	}

	ratingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid rating id")
		return
	}

	var req RatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return
	}

	rating, err := h.ratings.Update(r.Context(), ratingID, userID, req.Trustworthiness, req.Usefulness, req.Text)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, rating); err != nil {
		h.logger.Error("Failed to encode rating", zap.Error(err))
	}
}

// Delete handles DELETE /api/ratings/{id}.
func (h *RatingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.gate(w, r)
	if !ok {
		return
	}

	ratingID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_id", "invalid rating id")
		return
	}

	if err := h.ratings.Delete(r.Context(), ratingID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// gate extracts the caller identity and applies the rating rate limit.
// Identity arrives as an opaque X-User-ID header; authentication itself
// happens upstream.
func (h *RatingsHandler) gate(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_user", "missing or invalid X-User-ID header")
		return uuid.Nil, false
	}

	result := h.limiter.Check(r.Context(),
		ratelimit.Key("rating", "user", userID.String()),
		h.cfg.RateLimit.RatingPerMinute,
		time.Minute,
	)
	if !result.Allowed {
		retryAfter := int(result.ResetIn.Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		_ = ErrorResponse(w, http.StatusTooManyRequests, "rate_limited",
			fmt.Sprintf("%s, retry in %ds", apperrors.ErrRateLimited.Error(), retryAfter))
		return uuid.Nil, false
	}

	return userID, true
}

// writeServiceError maps service errors to HTTP statuses. Anything
// unexpected surfaces as a generic internal error with no retry guidance.
func (h *RatingsHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidScore):
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_score", apperrors.ErrInvalidScore.Error())
	case errors.Is(err, apperrors.ErrDuplicateRating):
		_ = ErrorResponse(w, http.StatusConflict, "duplicate_rating", apperrors.ErrDuplicateRating.Error())
	case errors.Is(err, apperrors.ErrNotRatingOwner):
		_ = ErrorResponse(w, http.StatusForbidden, "not_owner", apperrors.ErrNotRatingOwner.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", apperrors.ErrNotFound.Error())
	default:
		h.logger.Error("Rating mutation failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
