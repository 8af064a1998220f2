package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/repositories"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/postgres"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

const (
	searchEventsTable = "search_events"

	// dedupBucketSeconds sizes the time bucket in the (session, query, bucket)
	// uniqueness constraint.
	dedupBucketSeconds = 30

	sessionHistoryLimit = 50
)

var breakdownDimensions = map[string]bool{
	"device_type": true,
	"browser":     true,
	"locale":      true,
}

// SearchEventAdapter implements search event persistence in Postgres.
type SearchEventAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	dbx    *sqlx.DB
}

// NewSearchEventAdapter creates a new search event adapter.
func NewSearchEventAdapter(client *postgres.Client) repositories.SearchEventRepository {
	return &SearchEventAdapter{
		client: client,
		db:     client.Goqu(),
		dbx:    client.Sqlx(),
	}
}

// Insert stores the event. Rows colliding on (session_id, normalized_query,
// dedup_bucket) are skipped and reported with inserted=false.
func (a *SearchEventAdapter) Insert(ctx context.Context, event *entities.SearchEvent) (int64, bool, error) {
	if event == nil {
		return 0, false, apperrors.NewInternalError("search event is nil", fmt.Errorf("search event is nil"))
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	record := goqu.Record{
		"query":            event.Query,
		"normalized_query": strings.ToLower(strings.TrimSpace(event.Query)),
		"result_count":     event.ResultCount,
		"time_taken":       event.TimeTaken,
		"has_results":      event.HasResults,
		"intent":           string(event.Intent),
		"session_id":       event.SessionID,
		"user_id":          nullInt64(event.UserID),
		"device_type":      event.DeviceType,
		"browser":          event.Browser,
		"locale":           event.Locale,
		"dedup_bucket":     event.CreatedAt.Unix() / dedupBucketSeconds,
		"created_at":       event.CreatedAt,
	}

	query, args, err := a.db.Insert(searchEventsTable).
		Rows(record).
		OnConflict(goqu.DoNothing()).
		Returning("id").
		ToSQL()
	if err != nil {
		return 0, false, apperrors.NewInternalError("failed to build search event insert query", err)
	}

	var id int64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, apperrors.NewInternalError("failed to insert search event", err)
	}

	return id, true, nil
}

// RecentSessionQueries returns the session's queries recorded at or after since, newest first.
func (a *SearchEventAdapter) RecentSessionQueries(ctx context.Context, sessionID string, since time.Time) ([]entities.RecordedQuery, error) {
	query, args, err := a.db.From(searchEventsTable).
		Select("query", "created_at").
		Where(
			goqu.C("session_id").Eq(sessionID),
			goqu.C("created_at").Gte(since),
		).
		Order(goqu.C("created_at").Desc()).
		Limit(sessionHistoryLimit).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build session history query", err)
	}

	out := []entities.RecordedQuery{}
	if err := a.dbx.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to query session history", err)
	}

	return out, nil
}

// Totals returns headline counts for events created at or after since.
func (a *SearchEventAdapter) Totals(ctx context.Context, since time.Time) (entities.SearchTotals, error) {
	var totals entities.SearchTotals

	query, args, err := a.db.From(searchEventsTable).
		Select(
			goqu.COUNT(goqu.Star()).As("total_searches"),
			goqu.L("COALESCE(SUM(CASE WHEN has_results THEN 1 ELSE 0 END), 0)").As("searches_with_results"),
			goqu.COALESCE(goqu.AVG("time_taken"), 0).As("avg_time_taken"),
		).
		Where(goqu.C("created_at").Gte(since)).
		ToSQL()
	if err != nil {
		return totals, apperrors.NewInternalError("failed to build totals query", err)
	}

	err = a.client.DB().QueryRowContext(ctx, query, args...).
		Scan(&totals.TotalSearches, &totals.SearchesWithResults, &totals.AvgTimeTaken)
	if err != nil {
		return totals, apperrors.NewInternalError("failed to query search totals", err)
	}

	return totals, nil
}

// TopQueries returns the most frequent normalized queries. With
// zeroResultsOnly it only counts searches that returned nothing.
func (a *SearchEventAdapter) TopQueries(ctx context.Context, since time.Time, zeroResultsOnly bool, limit int) ([]entities.QueryCount, error) {
	if limit <= 0 {
		limit = 10
	}

	ds := a.db.From(searchEventsTable).
		Select(goqu.C("normalized_query"), goqu.COUNT(goqu.Star()).As("searches")).
		Where(goqu.C("created_at").Gte(since))
	if zeroResultsOnly {
		ds = ds.Where(goqu.C("result_count").Eq(0))
	}

	query, args, err := ds.
		GroupBy("normalized_query").
		Order(goqu.I("searches").Desc(), goqu.C("normalized_query").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build top queries query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query top queries", err)
	}
	defer rows.Close()

	out := []entities.QueryCount{}
	for rows.Next() {
		var qc entities.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan top query row", err)
		}
		out = append(out, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate top queries", err)
	}

	return out, nil
}

// Breakdown counts events per value of dimension. Blank values are reported as "unknown".
func (a *SearchEventAdapter) Breakdown(ctx context.Context, since time.Time, dimension string, limit int) ([]entities.BreakdownCount, error) {
	if !breakdownDimensions[dimension] {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported breakdown dimension %q", dimension))
	}
	if limit <= 0 {
		limit = 10
	}

	query, args, err := a.db.From(searchEventsTable).
		Select(
			goqu.L(fmt.Sprintf("COALESCE(NULLIF(%s, ''), 'unknown')", dimension)).As("value"),
			goqu.COUNT(goqu.Star()).As("searches"),
		).
		Where(goqu.C("created_at").Gte(since)).
		GroupBy(goqu.I("value")).
		Order(goqu.I("searches").Desc(), goqu.I("value").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build breakdown query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query breakdown", err)
	}
	defer rows.Close()

	out := []entities.BreakdownCount{}
	for rows.Next() {
		var bc entities.BreakdownCount
		if err := rows.Scan(&bc.Value, &bc.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan breakdown row", err)
		}
		out = append(out, bc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate breakdown", err)
	}

	return out, nil
}

// DailyCounts returns searches per UTC day, oldest first.
func (a *SearchEventAdapter) DailyCounts(ctx context.Context, since time.Time) ([]entities.DailyCount, error) {
	query, args, err := a.db.From(searchEventsTable).
		Select(
			goqu.L("date_trunc('day', created_at AT TIME ZONE 'UTC')").As("day"),
			goqu.COUNT(goqu.Star()).As("searches"),
		).
		Where(goqu.C("created_at").Gte(since)).
		GroupBy(goqu.I("day")).
		Order(goqu.I("day").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build daily counts query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query daily counts", err)
	}
	defer rows.Close()

	out := []entities.DailyCount{}
	for rows.Next() {
		var dc entities.DailyCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan daily count row", err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate daily counts", err)
	}

	return out, nil
}

// Recent returns the newest events.
func (a *SearchEventAdapter) Recent(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = 20
	}

	query, args, err := a.db.From(searchEventsTable).
		Select(
			"id", "query", "result_count", "time_taken", "has_results", "intent",
			"session_id", "user_id", "device_type", "browser", "locale", "created_at",
		).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build recent searches query", err)
	}

	events := []*entities.SearchEvent{}
	if err := a.dbx.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to query recent searches", err)
	}

	return events, nil
}

// DeleteOlderThan removes events created before cutoff and returns how many were removed.
func (a *SearchEventAdapter) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return deleteOlderThan(ctx, a.client, a.db, searchEventsTable, cutoff)
}

func deleteOlderThan(ctx context.Context, client *postgres.Client, db *goqu.Database, table string, cutoff time.Time) (int64, error) {
	query, args, err := db.Delete(table).Where(goqu.C("created_at").Lt(cutoff)).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build retention delete query", err)
	}

	res, err := client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError(fmt.Sprintf("failed to delete old rows from %s", table), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read deleted row count", err)
	}
	return n, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
