package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ivanmandinski/aisearch-sub002/internal/application/services"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
)

const (
	defaultStatsDays    = 30
	defaultRecentLimit  = 20
	maxImpressionsBatch = 100
)

// AnalyticsService defines the search analytics reads used by the handler.
type AnalyticsService interface {
	Aggregate(ctx context.Context, days int) (*entities.AnalyticsStats, error)
	RecentSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
}

// CTRService defines the click-through operations used by the handler.
type CTRService interface {
	RecordImpressions(ctx context.Context, batch services.ImpressionBatch) (int, error)
	RecordClick(ctx context.Context, click services.Click) (services.ClickOutcome, error)
	Summary(ctx context.Context, days int) (*entities.CTRSummary, error)
	TopClicked(ctx context.Context, days int) ([]entities.ClickedResult, error)
}

// AnalyticsHandler serves impression/click tracking and the dashboard reads.
type AnalyticsHandler struct {
	analytics  AnalyticsService
	ctr        CTRService
	cookieName string
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(analytics AnalyticsService, ctr CTRService, cookieName string) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics:  analytics,
		ctr:        ctr,
		cookieName: cookieName,
	}
}

type impressionsRequest struct {
	SearchID *int64                `json:"search_id"`
	Query    string                `json:"query"`
	UserID   *int64                `json:"user_id"`
	Results  []services.Impression `json:"results"`
}

type clickRequest struct {
	SearchID *int64  `json:"search_id"`
	Query    string  `json:"query"`
	ResultID string  `json:"result_id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
	UserID   *int64  `json:"user_id"`
}

// RecordImpressions handles POST /api/analytics/impressions
func (h *AnalyticsHandler) RecordImpressions(w http.ResponseWriter, r *http.Request) {
	var payload impressionsRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(payload.Results) == 0 {
		respondWithError(w, http.StatusBadRequest, "results are required")
		return
	}
	if len(payload.Results) > maxImpressionsBatch {
		respondWithError(w, http.StatusBadRequest, "too many results")
		return
	}

	recorded, err := h.ctr.RecordImpressions(r.Context(), services.ImpressionBatch{
		SearchID:  payload.SearchID,
		Query:     payload.Query,
		SessionID: sessionID(r, h.cookieName),
		UserID:    payload.UserID,
		Device:    deviceInfo(r),
		Results:   payload.Results,
	})
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("failed to record impressions")
		respondWithAppError(w, err, "failed to record impressions")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]int{"recorded": recorded})
}

// RecordClick handles POST /api/analytics/click
func (h *AnalyticsHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	var payload clickRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	outcome, err := h.ctr.RecordClick(r.Context(), services.Click{
		SearchID:  payload.SearchID,
		Query:     payload.Query,
		ResultID:  payload.ResultID,
		Title:     payload.Title,
		URL:       payload.URL,
		Position:  payload.Position,
		Score:     payload.Score,
		SessionID: sessionID(r, h.cookieName),
		UserID:    payload.UserID,
		Device:    deviceInfo(r),
	})
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("failed to record click")
		respondWithAppError(w, err, "failed to record click")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"matched":  outcome.Matched,
		"event_id": outcome.EventID,
	})
}

// GetStats handles GET /api/analytics/stats
func (h *AnalyticsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Aggregate(r.Context(), intQuery(r, "days", defaultStatsDays))
	if err != nil {
		respondWithAppError(w, err, "failed to load analytics")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// GetRecent handles GET /api/analytics/recent
func (h *AnalyticsHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	events, err := h.analytics.RecentSearches(r.Context(), intQuery(r, "limit", defaultRecentLimit))
	if err != nil {
		respondWithAppError(w, err, "failed to load recent searches")
		return
	}
	if events == nil {
		events = []*entities.SearchEvent{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"searches": events,
		"count":    len(events),
	})
}

// GetCTR handles GET /api/analytics/ctr
func (h *AnalyticsHandler) GetCTR(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ctr.Summary(r.Context(), intQuery(r, "days", defaultStatsDays))
	if err != nil {
		respondWithAppError(w, err, "failed to load click-through rates")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// GetTopClicked handles GET /api/analytics/top-clicked
func (h *AnalyticsHandler) GetTopClicked(w http.ResponseWriter, r *http.Request) {
	results, err := h.ctr.TopClicked(r.Context(), intQuery(r, "days", defaultStatsDays))
	if err != nil {
		respondWithAppError(w, err, "failed to load top clicked results")
		return
	}
	if results == nil {
		results = []entities.ClickedResult{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}
