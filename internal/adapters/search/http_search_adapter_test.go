package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/searchapi"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

type stubSearchClient struct {
	resp *searchapi.SearchResponse
	err  error
	last searchapi.SearchRequest
}

func (s *stubSearchClient) Search(ctx context.Context, req searchapi.SearchRequest) (*searchapi.SearchResponse, error) {
	s.last = req
	return s.resp, s.err
}

func (s *stubSearchClient) Health(ctx context.Context) error { return nil }

func TestHTTPSearchAdapter_MapsResponse(t *testing.T) {
	client := &stubSearchClient{resp: &searchapi.SearchResponse{
		Success: true,
		Answer:  "Weekly.",
		Results: []searchapi.Result{{ID: "101", Title: "Bins", Type: "service", Score: 0.9, Tags: []string{"waste"}}},
	}}
	adapter := NewHTTPSearchAdapter(client)

	resp, err := adapter.Search(context.Background(), "bins", providers.SearchOptions{Limit: 100, IncludeAnswer: true, AIInstructions: "prefer services"})

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Weekly.", resp.Answer)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "101", resp.Results[0].ID)
	assert.Equal(t, []string{"waste"}, resp.Results[0].Tags)
	assert.Equal(t, "prefer services", client.last.AIInstructions)
	assert.Equal(t, 100, client.last.Limit)
}

func TestHTTPSearchAdapter_Errors(t *testing.T) {
	_, err := NewHTTPSearchAdapter(&stubSearchClient{err: searchapi.ErrCircuitOpen}).Search(context.Background(), "q", providers.SearchOptions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeUnavailable))

	_, err = NewHTTPSearchAdapter(&stubSearchClient{err: errors.New("dial tcp")}).Search(context.Background(), "q", providers.SearchOptions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeExternal))
}
