package providers

import (
	"context"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

// SearchOptions are forwarded to the hybrid search service.
type SearchOptions struct {
	Limit          int
	Offset         int
	IncludeAnswer  bool
	AIInstructions string
}

// SearchProviderResponse is the upstream envelope. Results arrive already
// ordered by combined relevance, with any LLM reranking applied.
type SearchProviderResponse struct {
	Success  bool
	Results  []entities.SearchResult
	Answer   string
	Metadata map[string]interface{}
}

// SearchProvider is the external keyword + vector + LLM search service.
type SearchProvider interface {
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchProviderResponse, error)
}
