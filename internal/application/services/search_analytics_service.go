package services

import (
	"context"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/repositories"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

const (
	defaultStatsDays  = 30
	maxStatsDays      = 365
	defaultRecentSize = 20
	maxRecentSize     = 100
)

// AnalyticsConfig configures caching and rollup sizes for SearchAnalyticsService.
type AnalyticsConfig struct {
	CacheEnabled   bool
	AggregateTTL   time.Duration
	RecentTTL      time.Duration
	TopQueries     int
	BreakdownLimit int
}

// DefaultAnalyticsConfig returns the plugin defaults.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		CacheEnabled:   true,
		AggregateTTL:   time.Hour,
		RecentTTL:      5 * time.Minute,
		TopQueries:     10,
		BreakdownLimit: 10,
	}
}

// RecordOutcome is the result of SearchAnalyticsService.Record.
type RecordOutcome struct {
	EventID int64
	// Rejected is true when the event was suppressed as a duplicate.
	Rejected bool
}

// SearchAnalyticsService records search events and serves cached rollups.
type SearchAnalyticsService struct {
	repo    repositories.SearchEventRepository
	dedup   *SearchEventDeduplicator
	cache   providers.CacheProvider
	cfg     AnalyticsConfig
	metrics *observability.Metrics
	now     func() time.Time
}

// NewSearchAnalyticsService creates the service. cache may be nil.
func NewSearchAnalyticsService(
	repo repositories.SearchEventRepository,
	dedup *SearchEventDeduplicator,
	cache providers.CacheProvider,
	cfg AnalyticsConfig,
	metrics *observability.Metrics,
) *SearchAnalyticsService {
	if dedup == nil {
		dedup = NewSearchEventDeduplicator(DefaultDedupConfig(), nil)
	}
	if !cfg.CacheEnabled {
		cache = nil
	}
	return &SearchAnalyticsService{
		repo:    repo,
		dedup:   dedup,
		cache:   cache,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// Record persists event unless the deduplicator or the store's uniqueness
// constraint rejects it. Every successful insert invalidates cached rollups.
func (s *SearchAnalyticsService) Record(ctx context.Context, event *entities.SearchEvent) (RecordOutcome, error) {
	if event == nil {
		return RecordOutcome{}, apperrors.NewValidationError("search event is required")
	}

	event.HasResults = event.ResultCount > 0
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}
	if event.Intent == "" {
		event.Intent = entities.IntentGeneral
	}

	if !s.dedup.ShouldRecord(ctx, event.Query, event.SessionID, s.repo) {
		s.metrics.RecordSearchEvent(ctx, false)
		return RecordOutcome{Rejected: true}, nil
	}

	id, inserted, err := s.repo.Insert(ctx, event)
	if err != nil {
		return RecordOutcome{}, err
	}
	if !inserted {
		s.metrics.RecordSearchEvent(ctx, false)
		return RecordOutcome{Rejected: true}, nil
	}

	event.ID = id
	s.metrics.RecordSearchEvent(ctx, true)
	invalidatePrefix(ctx, s.cache, analyticsCachePrefix)
	return RecordOutcome{EventID: id}, nil
}

// Aggregate returns the dashboard rollup over the last days days.
func (s *SearchAnalyticsService) Aggregate(ctx context.Context, days int) (*entities.AnalyticsStats, error) {
	days = clampDays(days)
	key := analyticsCacheKey(analyticsCachePrefix, "aggregate", map[string]int{"days": days})

	return cachedQuery(ctx, s.cache, s.metrics, analyticsCachePrefix, key, s.cfg.AggregateTTL,
		func(ctx context.Context) (*entities.AnalyticsStats, error) {
			return s.computeAggregate(ctx, days)
		})
}

func (s *SearchAnalyticsService) computeAggregate(ctx context.Context, days int) (*entities.AnalyticsStats, error) {
	since := s.now().UTC().AddDate(0, 0, -days)

	totals, err := s.repo.Totals(ctx, since)
	if err != nil {
		return nil, err
	}
	popular, err := s.repo.TopQueries(ctx, since, false, s.cfg.TopQueries)
	if err != nil {
		return nil, err
	}
	zero, err := s.repo.TopQueries(ctx, since, true, s.cfg.TopQueries)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.Breakdown(ctx, since, "device_type", s.cfg.BreakdownLimit)
	if err != nil {
		return nil, err
	}
	browsers, err := s.repo.Breakdown(ctx, since, "browser", s.cfg.BreakdownLimit)
	if err != nil {
		return nil, err
	}
	daily, err := s.repo.DailyCounts(ctx, since)
	if err != nil {
		return nil, err
	}

	stats := &entities.AnalyticsStats{
		Days:                days,
		TotalSearches:       totals.TotalSearches,
		SearchesWithResults: totals.SearchesWithResults,
		ZeroResultSearches:  totals.TotalSearches - totals.SearchesWithResults,
		AvgTimeTaken:        totals.AvgTimeTaken,
		PopularQueries:      popular,
		ZeroResultQueries:   zero,
		DeviceBreakdown:     devices,
		BrowserBreakdown:    browsers,
		DailyCounts:         daily,
	}
	if stats.TotalSearches > 0 {
		stats.ZeroResultRate = float64(stats.ZeroResultSearches) / float64(stats.TotalSearches)
	}
	return stats, nil
}

// RecentSearches returns the newest recorded events.
func (s *SearchAnalyticsService) RecentSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	if limit < 1 || limit > maxRecentSize {
		limit = defaultRecentSize
	}
	key := analyticsCacheKey(analyticsCachePrefix, "recent", map[string]int{"limit": limit})

	return cachedQuery(ctx, s.cache, s.metrics, analyticsCachePrefix, key, s.cfg.RecentTTL,
		func(ctx context.Context) ([]*entities.SearchEvent, error) {
			return s.repo.Recent(ctx, limit)
		})
}

// RetentionCleanup deletes events older than retentionDays.
func (s *SearchAnalyticsService) RetentionCleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, apperrors.NewValidationError("retention days must be at least 1")
	}

	deleted, err := s.repo.DeleteOlderThan(ctx, s.now().UTC().AddDate(0, 0, -retentionDays))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		invalidatePrefix(ctx, s.cache, analyticsCachePrefix)
	}
	return deleted, nil
}

func clampDays(days int) int {
	if days < 1 {
		return defaultStatsDays
	}
	if days > maxStatsDays {
		return maxStatsDays
	}
	return days
}
