package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ivanmandinski/aisearch-sub002/internal/application/services"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// historyAt is a fixed query history.
type historyAt []entities.RecordedQuery

func (h historyAt) RecentSessionQueries(ctx context.Context, sessionID string, since time.Time) ([]entities.RecordedQuery, error) {
	var out []entities.RecordedQuery
	for _, q := range h {
		if !q.CreatedAt.Before(since) {
			out = append(out, q)
		}
	}
	return out, nil
}

type failingHistory struct{}

func (failingHistory) RecentSessionQueries(ctx context.Context, sessionID string, since time.Time) ([]entities.RecordedQuery, error) {
	return nil, errors.New("connection refused")
}

func TestShouldRecord_ExactWindow(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	dedup := services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), clock.Now)
	repo := &stubSearchEventRepo{}

	assert.True(t, dedup.ShouldRecord(ctx, "bin collection", "s1", repo))
	_, _, _ = repo.Insert(ctx, &entities.SearchEvent{Query: "bin collection", SessionID: "s1", CreatedAt: clock.Now()})

	clock.Advance(10 * time.Second)
	assert.False(t, dedup.ShouldRecord(ctx, "bin collection", "s1", repo))
	assert.False(t, dedup.ShouldRecord(ctx, "  Bin Collection ", "s1", repo))

	clock.Advance(21 * time.Second)
	assert.True(t, dedup.ShouldRecord(ctx, "bin collection", "s1", repo))
}

func TestShouldRecord_OtherSessionUnaffected(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	dedup := services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), func() time.Time { return now })
	repo := &stubSearchEventRepo{}
	_, _, _ = repo.Insert(context.Background(), &entities.SearchEvent{Query: "parking", SessionID: "s1", CreatedAt: now})

	assert.True(t, dedup.ShouldRecord(context.Background(), "parking", "s2", repo))
}

func TestShouldRecord_PartialQueries(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	dedup := services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), func() time.Time { return now })

	tests := []struct {
		name    string
		history historyAt
		query   string
		want    bool
	}{
		{"typing extends query", historyAt{{Query: "wast", CreatedAt: now.Add(-5 * time.Second)}}, "waste", false},
		{"backspace shortens query", historyAt{{Query: "waste man", CreatedAt: now.Add(-40 * time.Second)}}, "waste", false},
		{"outside partial window", historyAt{{Query: "wast", CreatedAt: now.Add(-61 * time.Second)}}, "waste", true},
		{"unrelated query", historyAt{{Query: "parking", CreatedAt: now.Add(-5 * time.Second)}}, "waste", true},
		{"same query after exact window", historyAt{{Query: "waste", CreatedAt: now.Add(-45 * time.Second)}}, "waste", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedup.ShouldRecord(context.Background(), tt.query, "s1", tt.history))
		})
	}
}

func TestShouldRecord_EmptySessionAlwaysRecords(t *testing.T) {
	now := time.Now()
	dedup := services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), nil)
	history := historyAt{{Query: "waste", CreatedAt: now}}

	assert.True(t, dedup.ShouldRecord(context.Background(), "waste", "", history))
}

func TestShouldRecord_LookupErrorRecords(t *testing.T) {
	dedup := services.NewSearchEventDeduplicator(services.DefaultDedupConfig(), nil)

	assert.True(t, dedup.ShouldRecord(context.Background(), "waste", "s1", failingHistory{}))
}
