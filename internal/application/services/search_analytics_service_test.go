package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmandinski/aisearch-sub002/internal/application/services"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

func newAnalyticsService(repo *stubSearchEventRepo, cache *MockCacheProvider) *services.SearchAnalyticsService {
	dedup := services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), nil)
	if cache == nil {
		return services.NewSearchAnalyticsService(repo, dedup, nil, services.DefaultAnalyticsConfig(), nil)
	}
	return services.NewSearchAnalyticsService(repo, dedup, cache, services.DefaultAnalyticsConfig(), nil)
}

func TestRecord_InsertsAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := &stubSearchEventRepo{}
	cache := NewMockCacheProvider()
	svc := newAnalyticsService(repo, cache)

	_ = cache.Set(ctx, "search_analytics:aggregate:stale", []byte(`{}`), 60)
	_ = cache.Set(ctx, "search_ctr:by_position:keep", []byte(`[]`), 60)

	event := &entities.SearchEvent{Query: "waste management", ResultCount: 5, SessionID: "s1"}
	outcome, err := svc.Record(ctx, event)

	require.NoError(t, err)
	assert.False(t, outcome.Rejected)
	assert.Equal(t, int64(1), outcome.EventID)
	assert.True(t, event.HasResults)
	assert.False(t, event.CreatedAt.IsZero())
	assert.Equal(t, []string{"search_analytics:*"}, cache.Patterns())
	assert.Equal(t, 1, cache.Len())
}

func TestRecord_DuplicateIsRejectedWithoutInsert(t *testing.T) {
	ctx := context.Background()
	repo := &stubSearchEventRepo{}
	cache := NewMockCacheProvider()
	svc := newAnalyticsService(repo, cache)

	first, err := svc.Record(ctx, &entities.SearchEvent{Query: "parking permits", SessionID: "s1"})
	require.NoError(t, err)
	require.False(t, first.Rejected)

	second, err := svc.Record(ctx, &entities.SearchEvent{Query: "parking permits", SessionID: "s1"})
	require.NoError(t, err)

	assert.True(t, second.Rejected)
	assert.Zero(t, second.EventID)
	assert.Equal(t, 1, repo.count())
	assert.Len(t, cache.Patterns(), 1)
}

func TestRecord_StoreConflictIsRejected(t *testing.T) {
	repo := &stubSearchEventRepo{rejectNext: true}
	svc := newAnalyticsService(repo, NewMockCacheProvider())

	outcome, err := svc.Record(context.Background(), &entities.SearchEvent{Query: "q", SessionID: "s1"})

	require.NoError(t, err)
	assert.True(t, outcome.Rejected)
	assert.Equal(t, 0, repo.count())
}

func TestRecord_ZeroResultsAndInsertError(t *testing.T) {
	ctx := context.Background()
	repo := &stubSearchEventRepo{}
	svc := newAnalyticsService(repo, nil)

	event := &entities.SearchEvent{Query: "xyzzy", ResultCount: 0}
	_, err := svc.Record(ctx, event)
	require.NoError(t, err)
	assert.False(t, event.HasResults)
	assert.Equal(t, entities.IntentGeneral, event.Intent)

	repo.insertErr = apperrors.NewInternalError("failed to insert search event", errors.New("boom"))
	_, err = svc.Record(ctx, &entities.SearchEvent{Query: "other"})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeInternal))
}

func TestAggregate_ComputesAndCaches(t *testing.T) {
	ctx := context.Background()
	repo := &stubSearchEventRepo{totals: entities.SearchTotals{TotalSearches: 40, SearchesWithResults: 30, AvgTimeTaken: 0.42}}
	cache := NewMockCacheProvider()
	svc := newAnalyticsService(repo, cache)

	stats, err := svc.Aggregate(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Days)
	assert.Equal(t, int64(10), stats.ZeroResultSearches)
	assert.InDelta(t, 0.25, stats.ZeroResultRate, 1e-9)
	assert.Equal(t, "waste management", stats.PopularQueries[0].Query)
	assert.Equal(t, "recycling calendar", stats.ZeroResultQueries[0].Query)
	assert.Equal(t, "device_type-top", stats.DeviceBreakdown[0].Value)
	assert.Equal(t, "browser-top", stats.BrowserBreakdown[0].Value)

	again, err := svc.Aggregate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, stats.TotalSearches, again.TotalSearches)
	assert.Equal(t, 1, repo.totalsCalls)

	_, err = svc.Aggregate(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.totalsCalls)
}

func TestAggregate_CacheDisabledMatchesCached(t *testing.T) {
	ctx := context.Background()
	totals := entities.SearchTotals{TotalSearches: 3, SearchesWithResults: 3}

	cached := newAnalyticsService(&stubSearchEventRepo{totals: totals}, NewMockCacheProvider())
	cfg := services.DefaultAnalyticsConfig()
	cfg.CacheEnabled = false
	uncachedRepo := &stubSearchEventRepo{totals: totals}
	uncached := services.NewSearchAnalyticsService(uncachedRepo, nil, NewMockCacheProvider(), cfg, nil)

	a, err := cached.Aggregate(ctx, 14)
	require.NoError(t, err)
	b, err := uncached.Aggregate(ctx, 14)
	require.NoError(t, err)
	_, _ = uncached.Aggregate(ctx, 14)

	assert.Equal(t, a, b)
	assert.Zero(t, b.ZeroResultRate)
	assert.Equal(t, 2, uncachedRepo.totalsCalls)
}

func TestAggregate_CacheErrorFallsThrough(t *testing.T) {
	repo := &stubSearchEventRepo{totals: entities.SearchTotals{TotalSearches: 1}}
	cache := NewMockCacheProvider()
	cache.getErr = errors.New("redis down")
	svc := newAnalyticsService(repo, cache)

	stats, err := svc.Aggregate(context.Background(), 0)

	require.NoError(t, err)
	assert.Equal(t, 30, stats.Days)
	assert.Equal(t, int64(1), stats.TotalSearches)
}

func TestRecentSearches_LimitClamped(t *testing.T) {
	ctx := context.Background()
	repo := &stubSearchEventRepo{}
	svc := newAnalyticsService(repo, nil)
	for _, q := range []string{"a", "b", "c"} {
		_, err := svc.Record(ctx, &entities.SearchEvent{Query: q})
		require.NoError(t, err)
	}

	recent, err := svc.RecentSearches(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	recent, err = svc.RecentSearches(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestCachedQueries_SubSecondTTLStillExpires(t *testing.T) {
	ctx := context.Background()
	cache := NewMockCacheProvider()
	cfg := services.DefaultAnalyticsConfig()
	cfg.RecentTTL = 200 * time.Millisecond
	cfg.AggregateTTL = 1500 * time.Millisecond
	dedup := services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), nil)
	svc := services.NewSearchAnalyticsService(&stubSearchEventRepo{}, dedup, cache, cfg, nil)

	_, err := svc.RecentSearches(ctx, 5)
	require.NoError(t, err)
	_, err = svc.Aggregate(ctx, 7)
	require.NoError(t, err)

	ttls := cache.TTLs()
	require.Len(t, ttls, 2)
	var got []int
	for _, secs := range ttls {
		got = append(got, secs)
	}
	assert.ElementsMatch(t, []int{1, 2}, got)
}

func TestRetentionCleanup(t *testing.T) {
	repo := &stubSearchEventRepo{deleted: 12}
	cache := NewMockCacheProvider()
	svc := newAnalyticsService(repo, cache)

	_, err := svc.RetentionCleanup(context.Background(), 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	deleted, err := svc.RetentionCleanup(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -90), repo.cutoff, time.Minute)
	assert.Equal(t, []string{"search_analytics:*"}, cache.Patterns())
}
