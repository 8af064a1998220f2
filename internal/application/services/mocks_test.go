package services_test

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/application/services"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
)

// MockCacheProvider for testing
type MockCacheProvider struct {
	mu       sync.RWMutex
	data     map[string][]byte
	patterns []string
	ttls     map[string]int
	getErr   error
}

func NewMockCacheProvider() *MockCacheProvider {
	return &MockCacheProvider{data: make(map[string][]byte), ttls: make(map[string]int)}
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, providers.ErrCacheMiss
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = expirationSeconds
	return nil
}

func (m *MockCacheProvider) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheProvider) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, pattern)
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	return nil
}

func (m *MockCacheProvider) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// TTLs returns the expiration passed to Set, keyed by cache key.
func (m *MockCacheProvider) TTLs() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int, len(m.ttls))
	for k, v := range m.ttls {
		out[k] = v
	}
	return out
}

func (m *MockCacheProvider) Patterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.patterns...)
}

// stubSearchEventRepo keeps events in memory and counts aggregate calls.
type stubSearchEventRepo struct {
	mu          sync.Mutex
	events      []*entities.SearchEvent
	nextID      int64
	rejectNext  bool
	historyErr  error
	insertErr   error
	totals      entities.SearchTotals
	totalsCalls int
	deleted     int64
	cutoff      time.Time
}

func (r *stubSearchEventRepo) RecentSessionQueries(ctx context.Context, sessionID string, since time.Time) ([]entities.RecordedQuery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.historyErr != nil {
		return nil, r.historyErr
	}
	var out []entities.RecordedQuery
	for _, e := range r.events {
		if e.SessionID == sessionID && !e.CreatedAt.Before(since) {
			out = append(out, entities.RecordedQuery{Query: e.Query, CreatedAt: e.CreatedAt})
		}
	}
	return out, nil
}

func (r *stubSearchEventRepo) Insert(ctx context.Context, event *entities.SearchEvent) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return 0, false, r.insertErr
	}
	if r.rejectNext {
		r.rejectNext = false
		return 0, false, nil
	}
	r.nextID++
	stored := *event
	stored.ID = r.nextID
	r.events = append(r.events, &stored)
	return r.nextID, true, nil
}

func (r *stubSearchEventRepo) Totals(ctx context.Context, since time.Time) (entities.SearchTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalsCalls++
	return r.totals, nil
}

func (r *stubSearchEventRepo) TopQueries(ctx context.Context, since time.Time, zeroResultsOnly bool, limit int) ([]entities.QueryCount, error) {
	if zeroResultsOnly {
		return []entities.QueryCount{{Query: "recycling calendar", Count: 4}}, nil
	}
	return []entities.QueryCount{{Query: "waste management", Count: 12}}, nil
}

func (r *stubSearchEventRepo) Breakdown(ctx context.Context, since time.Time, dimension string, limit int) ([]entities.BreakdownCount, error) {
	return []entities.BreakdownCount{{Value: dimension + "-top", Count: 1}}, nil
}

func (r *stubSearchEventRepo) DailyCounts(ctx context.Context, since time.Time) ([]entities.DailyCount, error) {
	return []entities.DailyCount{}, nil
}

func (r *stubSearchEventRepo) Recent(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) < limit {
		limit = len(r.events)
	}
	return r.events[:limit], nil
}

func (r *stubSearchEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoff = cutoff
	return r.deleted, nil
}

func (r *stubSearchEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// stubCTRRepo records calls made by CTRService.
type stubCTRRepo struct {
	mu          sync.Mutex
	impressions []*entities.CTREvent
	inserted    []*entities.CTREvent
	matches     []entities.ClickMatch
	matchResult bool
	matchErr    error
	positions   []entities.PositionCTR
	top         []entities.ClickedResult
	posCalls    int
}

func (r *stubCTRRepo) InsertImpressions(ctx context.Context, events []*entities.CTREvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.impressions = append(r.impressions, events...)
	return nil
}

func (r *stubCTRRepo) Insert(ctx context.Context, event *entities.CTREvent) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, event)
	return int64(len(r.inserted)), nil
}

func (r *stubCTRRepo) MarkClicked(ctx context.Context, m entities.ClickMatch) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, m)
	return r.matchResult, r.matchErr
}

func (r *stubCTRRepo) CTRByPosition(ctx context.Context, since time.Time, maxPosition int) ([]entities.PositionCTR, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posCalls++
	return append([]entities.PositionCTR(nil), r.positions...), nil
}

func (r *stubCTRRepo) TopClicked(ctx context.Context, since time.Time, limit int) ([]entities.ClickedResult, error) {
	return r.top, nil
}

func (r *stubCTRRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// stubSearchProvider returns a canned upstream response.
type stubSearchProvider struct {
	resp      *providers.SearchProviderResponse
	err       error
	lastQuery string
	lastOpts  providers.SearchOptions
}

func (p *stubSearchProvider) Search(ctx context.Context, query string, opts providers.SearchOptions) (*providers.SearchProviderResponse, error) {
	p.lastQuery = query
	p.lastOpts = opts
	return p.resp, p.err
}

// stubRecorder captures recorded events.
type stubRecorder struct {
	events []*entities.SearchEvent
	err    error
}

func (r *stubRecorder) Record(ctx context.Context, event *entities.SearchEvent) (services.RecordOutcome, error) {
	if r.err != nil {
		return services.RecordOutcome{}, r.err
	}
	r.events = append(r.events, event)
	return services.RecordOutcome{EventID: int64(len(r.events))}, nil
}

func result(id, typ string, score float64) entities.SearchResult {
	return entities.SearchResult{ID: id, Title: "Result " + id, Type: typ, Score: score}
}

func ids(results []entities.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}
