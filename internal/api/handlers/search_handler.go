package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
)

// SearchService defines the search operation used by the handler.
type SearchService interface {
	Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error)
}

// SearchHandler serves the site search endpoint.
type SearchHandler struct {
	service    SearchService
	cookieName string
}

// NewSearchHandler creates a new search handler. cookieName names the
// session cookie; empty disables session tracking for anonymous callers.
func NewSearchHandler(service SearchService, cookieName string) *SearchHandler {
	return &SearchHandler{service: service, cookieName: cookieName}
}

type searchRequest struct {
	Query         string `json:"query"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
	IncludeAnswer bool   `json:"include_answer"`
	FilterType    string `json:"filter_type"`
	FilterDate    string `json:"filter_date"`
	FilterSort    string `json:"filter_sort"`
	UserID        *int64 `json:"user_id"`
}

// Search handles POST /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var payload searchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	req := entities.SearchRequest{
		Query:         payload.Query,
		Limit:         payload.Limit,
		Offset:        payload.Offset,
		IncludeAnswer: payload.IncludeAnswer,
		FilterType:    payload.FilterType,
		FilterDate:    entities.DateWindow(payload.FilterDate),
		FilterSort:    entities.SortMode(payload.FilterSort),
		SessionID:     ensureSession(w, r, h.cookieName),
		UserID:        payload.UserID,
		Device:        deviceInfo(r),
	}

	resp, err := h.service.Search(r.Context(), req)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Debug().Err(err).Msg("search rejected")
		respondWithAppError(w, err, "search failed")
		return
	}

	// An unavailable upstream is reported in the body with success=false.
	respondWithJSON(w, http.StatusOK, resp)
}
