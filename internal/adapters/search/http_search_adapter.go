package search

import (
	"context"
	"errors"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/searchapi"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

// HTTPSearchAdapter adapts the hybrid search service client to providers.SearchProvider.
type HTTPSearchAdapter struct {
	client searchapi.Client
}

// NewHTTPSearchAdapter creates a new hybrid search provider.
func NewHTTPSearchAdapter(client searchapi.Client) *HTTPSearchAdapter {
	return &HTTPSearchAdapter{client: client}
}

var _ providers.SearchProvider = (*HTTPSearchAdapter)(nil)

// Search forwards the query and maps the response envelope.
func (a *HTTPSearchAdapter) Search(ctx context.Context, query string, opts providers.SearchOptions) (*providers.SearchProviderResponse, error) {
	resp, err := a.client.Search(ctx, searchapi.SearchRequest{
		Query:          query,
		Limit:          opts.Limit,
		Offset:         opts.Offset,
		IncludeAnswer:  opts.IncludeAnswer,
		AIInstructions: opts.AIInstructions,
	})
	if err != nil {
		if errors.Is(err, searchapi.ErrCircuitOpen) {
			return nil, apperrors.NewUnavailableError("search service is unavailable", err)
		}
		return nil, apperrors.NewExternalError("search service request failed", err)
	}

	out := &providers.SearchProviderResponse{
		Success:  resp.Success,
		Results:  make([]entities.SearchResult, 0, len(resp.Results)),
		Answer:   resp.Answer,
		Metadata: resp.Metadata,
	}
	for _, r := range resp.Results {
		out.Results = append(out.Results, entities.SearchResult{
			ID:         string(r.ID),
			Title:      r.Title,
			URL:        r.URL,
			Type:       r.Type,
			Score:      r.Score,
			AIScore:    r.AIScore,
			Date:       r.Date,
			Author:     r.Author,
			Excerpt:    r.Excerpt,
			Thumbnail:  r.Thumbnail,
			Categories: r.Categories,
			Tags:       r.Tags,
		})
	}
	return out, nil
}
