package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

const (
	maxQueryLength = 200

	// UnavailableMessage is returned to callers when the upstream search fails.
	UnavailableMessage = "Search is temporarily unavailable. Please try again."
)

// SearchRecorder persists search events. SearchAnalyticsService implements it.
type SearchRecorder interface {
	Record(ctx context.Context, event *entities.SearchEvent) (RecordOutcome, error)
}

// SearchServiceConfig configures the search pipeline.
type SearchServiceConfig struct {
	Ranking    RankingConfig
	Intent     IntentKeywords
	Pagination PaginationConfig
	// CandidateLimit is how many upstream results are fetched before
	// filtering and pagination.
	CandidateLimit  int
	UpstreamTimeout time.Duration
	AIInstructions  string
}

// DefaultSearchServiceConfig returns the plugin defaults.
func DefaultSearchServiceConfig() SearchServiceConfig {
	return SearchServiceConfig{
		Ranking:         DefaultRankingConfig(),
		Intent:          DefaultIntentKeywords(),
		Pagination:      DefaultPaginationConfig(),
		CandidateLimit:  100,
		UpstreamTimeout: 30 * time.Second,
	}
}

// SearchService runs a query through upstream retrieval, intent
// classification, reranking, filtering and pagination, then records analytics.
type SearchService struct {
	provider providers.SearchProvider
	recorder SearchRecorder
	cfg      SearchServiceConfig
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewSearchService creates a SearchService. recorder may be nil to disable analytics.
func NewSearchService(provider providers.SearchProvider, recorder SearchRecorder, cfg SearchServiceConfig, metrics *observability.Metrics) *SearchService {
	if cfg.CandidateLimit < 1 {
		cfg.CandidateLimit = 100
	}
	if cfg.Pagination.MaxLimit < 1 {
		cfg.Pagination = DefaultPaginationConfig()
	}
	return &SearchService{
		provider: provider,
		recorder: recorder,
		cfg:      cfg,
		metrics:  metrics,
		now:      time.Now,
	}
}

// NormalizeRequest trims the query, clamps pagination and drops unknown
// filter values. It fails only for an empty or oversized query.
func (s *SearchService) NormalizeRequest(req entities.SearchRequest) (entities.SearchRequest, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return req, apperrors.NewValidationError("query is required")
	}
	if utf8.RuneCountInString(req.Query) > maxQueryLength {
		return req, apperrors.NewValidationError("query is too long")
	}

	req.Offset, req.Limit = s.cfg.Pagination.Clamp(req.Offset, req.Limit)
	req.FilterType = strings.TrimSpace(req.FilterType)
	if _, ok := req.FilterDate.Duration(); !ok {
		req.FilterDate = entities.DateWindowAny
	}
	if !req.FilterSort.IsValid() {
		req.FilterSort = entities.SortRelevance
	}
	return req, nil
}

// Search executes one search. Upstream failures produce an unsuccessful
// response rather than an error; the error return is for invalid requests.
func (s *SearchService) Search(ctx context.Context, req entities.SearchRequest) (*entities.SearchResponse, error) {
	ctx, span := observability.StartSpan(ctx, "SearchService.Search")
	defer span.End()

	req, err := s.NormalizeRequest(req)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx)
	start := s.now()

	upstream, err := s.fetchCandidates(ctx, req)
	if err != nil {
		observability.RecordError(span, err)
		reason := "error"
		if apperrors.Is(err, apperrors.ErrorTypeUnavailable) {
			reason = "circuit_open"
		} else if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		s.metrics.RecordUpstreamFailure(ctx, reason)
		log.Error().Err(err).Str("query", req.Query).Msg("upstream search failed")
		return unavailableResponse(req), nil
	}
	if !upstream.Success {
		s.metrics.RecordUpstreamFailure(ctx, "unsuccessful")
		log.Error().Str("query", req.Query).Msg("upstream search returned an unsuccessful response")
		return unavailableResponse(req), nil
	}

	intent := ClassifyIntent(req.Query, s.cfg.Intent)
	groups := Rerank(upstream.Results, intent, s.cfg.Ranking)
	page := ApplyFilters(groups, FilterOptions{
		Type:   req.FilterType,
		Date:   req.FilterDate,
		Sort:   req.FilterSort,
		Offset: req.Offset,
		Limit:  req.Limit,
	}, s.cfg.Pagination, s.now())

	elapsed := s.now().Sub(start).Seconds()
	observability.SetSpanAttributes(span,
		attribute.String("search.intent", string(intent)),
		attribute.Int("search.upstream_results", len(upstream.Results)),
		attribute.Int("search.total", page.Total),
	)

	resp := &entities.SearchResponse{
		Success: true,
		Results: page.Results,
		Pagination: entities.Pagination{
			Offset:     page.Offset,
			Limit:      page.Limit,
			HasMore:    page.HasMore,
			NextOffset: page.NextOffset(),
		},
		Metadata: entities.SearchMetadata{
			Intent:    intent,
			Total:     page.Total,
			TimeTaken: elapsed,
		},
	}
	if req.IncludeAnswer {
		resp.Metadata.Answer = upstream.Answer
	}

	if req.Offset == 0 {
		resp.Metadata.SearchID = s.record(ctx, req, intent, len(upstream.Results), elapsed)
	}

	return resp, nil
}

func (s *SearchService) fetchCandidates(ctx context.Context, req entities.SearchRequest) (*providers.SearchProviderResponse, error) {
	if s.cfg.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
		defer cancel()
	}

	resp, err := s.provider.Search(ctx, req.Query, providers.SearchOptions{
		Limit:          s.cfg.CandidateLimit,
		Offset:         0,
		IncludeAnswer:  req.IncludeAnswer,
		AIInstructions: s.cfg.AIInstructions,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, apperrors.NewExternalError("empty upstream response", nil)
	}
	return resp, nil
}

// record stores the analytics event for a first-page search and returns its
// id, or 0 when nothing was stored. Failures are logged and never surface.
func (s *SearchService) record(ctx context.Context, req entities.SearchRequest, intent entities.Intent, resultCount int, elapsed float64) int64 {
	if s.recorder == nil || ctx.Err() != nil {
		return 0
	}

	outcome, err := s.recorder.Record(ctx, &entities.SearchEvent{
		Query:       req.Query,
		ResultCount: resultCount,
		TimeTaken:   elapsed,
		HasResults:  resultCount > 0,
		Intent:      intent,
		SessionID:   req.SessionID,
		UserID:      req.UserID,
		DeviceType:  req.Device.DeviceType,
		Browser:     req.Device.Browser,
		Locale:      req.Device.Locale,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("query", req.Query).
			Msg("failed to record search event")
		return 0
	}
	return outcome.EventID
}

func unavailableResponse(req entities.SearchRequest) *entities.SearchResponse {
	return &entities.SearchResponse{
		Success: false,
		Results: []entities.SearchResult{},
		Pagination: entities.Pagination{
			Offset: req.Offset,
			Limit:  req.Limit,
		},
		Metadata: entities.SearchMetadata{Message: UnavailableMessage},
	}
}
