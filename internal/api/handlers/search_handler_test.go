package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmandinski/aisearch-sub002/internal/api/handlers"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

const testCookie = "ai_search_session"

type stubSearchService struct {
	got  entities.SearchRequest
	resp *entities.SearchResponse
	err  error
}

func (s *stubSearchService) Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func TestSearchHandler_Search_Success(t *testing.T) {
	service := &stubSearchService{resp: &entities.SearchResponse{
		Success: true,
		Results: []entities.SearchResult{{ID: "1", Title: "Recycling", Type: "page", Score: 0.9}},
		Pagination: entities.Pagination{
			Offset: 0, Limit: 10, NextOffset: 10,
		},
		Metadata: entities.SearchMetadata{Intent: entities.IntentGeneral, Total: 1, SearchID: 42},
	}}
	handler := handlers.NewSearchHandler(service, testCookie)

	body := `{"query":"waste management","limit":10,"filter_type":"page","filter_sort":"date-desc"}`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148 Safari/604.1")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "waste management", service.got.Query)
	assert.Equal(t, "page", service.got.FilterType)
	assert.Equal(t, entities.SortDateDesc, service.got.FilterSort)
	assert.Equal(t, "mobile", service.got.Device.DeviceType)
	assert.Equal(t, "safari", service.got.Device.Browser)
	assert.Equal(t, "en-GB", service.got.Device.Locale)
	assert.NotEmpty(t, service.got.SessionID)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "a session cookie should be issued")
	assert.Equal(t, service.got.SessionID, cookie.Value)

	var response entities.SearchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.Success)
	assert.Len(t, response.Results, 1)
	assert.Equal(t, int64(42), response.Metadata.SearchID)
}

func TestSearchHandler_Search_ReusesSessionCookie(t *testing.T) {
	service := &stubSearchService{resp: &entities.SearchResponse{Success: true, Results: []entities.SearchResult{}}}
	handler := handlers.NewSearchHandler(service, testCookie)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"contact"}`))
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "sess-1"})
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sess-1", service.got.SessionID)
	assert.Empty(t, w.Result().Cookies())
}

func TestSearchHandler_Search_SessionHeaderWins(t *testing.T) {
	service := &stubSearchService{resp: &entities.SearchResponse{Success: true, Results: []entities.SearchResult{}}}
	handler := handlers.NewSearchHandler(service, testCookie)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"contact"}`))
	req.Header.Set(handlers.SessionHeader, "header-sess")
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "cookie-sess"})
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, "header-sess", service.got.SessionID)
}

func TestSearchHandler_Search_UnavailableIsStill200(t *testing.T) {
	service := &stubSearchService{resp: &entities.SearchResponse{
		Success:  false,
		Results:  []entities.SearchResult{},
		Metadata: entities.SearchMetadata{Message: "Search is temporarily unavailable. Please try again."},
	}}
	handler := handlers.NewSearchHandler(service, testCookie)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"recycling"}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, false, response["success"])
	assert.Equal(t, []interface{}{}, response["results"])
}

func TestSearchHandler_Search_ValidationError(t *testing.T) {
	service := &stubSearchService{err: apperrors.NewValidationError("query is required")}
	handler := handlers.NewSearchHandler(service, testCookie)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"   "}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "query is required", response["error"])
}

func TestSearchHandler_Search_InternalErrorHidesCause(t *testing.T) {
	service := &stubSearchService{err: apperrors.NewInternalError("boom", assert.AnError)}
	handler := handlers.NewSearchHandler(service, testCookie)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"recycling"}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestSearchHandler_Search_InvalidJSON(t *testing.T) {
	service := &stubSearchService{}
	handler := handlers.NewSearchHandler(service, testCookie)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, service.got.Query)
}
