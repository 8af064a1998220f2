package repositories

import (
	"context"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

// QueryHistoryLookup returns the queries a session recorded since a point in time.
type QueryHistoryLookup interface {
	RecentSessionQueries(ctx context.Context, sessionID string, since time.Time) ([]entities.RecordedQuery, error)
}

// SearchEventRepository persists search events and answers windowed aggregates.
type SearchEventRepository interface {
	QueryHistoryLookup

	// Insert stores the event and returns its id. inserted is false when the
	// store already holds the same (session, query, time bucket) row.
	Insert(ctx context.Context, event *entities.SearchEvent) (id int64, inserted bool, err error)
	Totals(ctx context.Context, since time.Time) (entities.SearchTotals, error)
	TopQueries(ctx context.Context, since time.Time, zeroResultsOnly bool, limit int) ([]entities.QueryCount, error)
	Breakdown(ctx context.Context, since time.Time, dimension string, limit int) ([]entities.BreakdownCount, error)
	DailyCounts(ctx context.Context, since time.Time) ([]entities.DailyCount, error)
	Recent(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
