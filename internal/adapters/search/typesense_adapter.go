package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	tsclient "github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/typesense"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

const maxTypesensePerPage = 250

// TypesenseAdapter serves searches straight from a Typesense collection. It
// is the keyword-only backend used when the hybrid search service is not
// deployed, so it never returns an answer.
type TypesenseAdapter struct {
	client  *tsclient.Client
	queryBy string
}

// NewTypesenseAdapter creates a new Typesense search provider.
func NewTypesenseAdapter(client *tsclient.Client, queryBy string) *TypesenseAdapter {
	if strings.TrimSpace(queryBy) == "" {
		queryBy = "title,excerpt,content"
	}
	return &TypesenseAdapter{client: client, queryBy: queryBy}
}

var _ providers.SearchProvider = (*TypesenseAdapter)(nil)

// Search queries the collection and maps hits to results ordered by text match.
func (a *TypesenseAdapter) Search(ctx context.Context, query string, opts providers.SearchOptions) (*providers.SearchProviderResponse, error) {
	limit := opts.Limit
	if limit <= 0 || limit > maxTypesensePerPage {
		limit = maxTypesensePerPage
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String(a.queryBy),
		Page:    pointer.Int(opts.Offset/limit + 1),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(a.client.Collection()).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, apperrors.NewExternalError("typesense search failed", err)
	}

	resp := &providers.SearchProviderResponse{
		Success:  true,
		Results:  []entities.SearchResult{},
		Metadata: map[string]interface{}{"backend": "typesense"},
	}
	if result.Found != nil {
		resp.Metadata["found"] = *result.Found
	}
	if result.Hits == nil {
		return resp, nil
	}

	hits := *result.Hits
	var maxMatch int64
	for _, hit := range hits {
		if hit.TextMatch != nil && *hit.TextMatch > maxMatch {
			maxMatch = *hit.TextMatch
		}
	}

	for _, hit := range hits {
		if hit.Document == nil {
			continue
		}
		var textMatch int64
		if hit.TextMatch != nil {
			textMatch = *hit.TextMatch
		}
		resp.Results = append(resp.Results, documentToResult(*hit.Document, normalizedScore(textMatch, maxMatch)))
	}

	return resp, nil
}

// normalizedScore scales a text match score into [0,1] relative to the best hit.
func normalizedScore(textMatch, maxMatch int64) float64 {
	if maxMatch <= 0 || textMatch <= 0 {
		return 0
	}
	return float64(textMatch) / float64(maxMatch)
}

// documentToResult converts a Typesense document. Missing or mistyped fields
// are left empty.
func documentToResult(doc map[string]interface{}, score float64) entities.SearchResult {
	r := entities.SearchResult{
		ID:         stringField(doc, "id"),
		Title:      stringField(doc, "title"),
		URL:        stringField(doc, "url"),
		Type:       stringField(doc, "type"),
		Score:      score,
		Date:       stringField(doc, "date"),
		Author:     stringField(doc, "author"),
		Excerpt:    stringField(doc, "excerpt"),
		Thumbnail:  stringField(doc, "thumbnail"),
		Categories: stringSliceField(doc, "categories"),
		Tags:       stringSliceField(doc, "tags"),
	}

	if v, ok := doc["ai_score"].(float64); ok {
		r.AIScore = &v
	}
	if r.Date == "" {
		if ts, ok := doc["published_at"].(float64); ok && ts > 0 {
			r.Date = time.Unix(int64(ts), 0).UTC().Format(time.RFC3339)
		}
	}

	return r
}

func stringField(doc map[string]interface{}, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

func stringSliceField(doc map[string]interface{}, key string) []string {
	raw, ok := doc[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
