package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/repositories"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/postgres"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

const ctrEventsTable = "ctr_events"

// CTRAdapter implements impression and click persistence in Postgres.
type CTRAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	dbx    *sqlx.DB
}

// NewCTRAdapter creates a new CTR adapter.
func NewCTRAdapter(client *postgres.Client) repositories.CTRRepository {
	return &CTRAdapter{
		client: client,
		db:     client.Goqu(),
		dbx:    client.Sqlx(),
	}
}

func ctrRecord(e *entities.CTREvent) goqu.Record {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return goqu.Record{
		"search_id":       nullInt64(e.SearchID),
		"query":           e.Query,
		"result_id":       e.ResultID,
		"result_title":    e.ResultTitle,
		"result_url":      e.ResultURL,
		"result_position": e.ResultPosition,
		"result_score":    e.ResultScore,
		"clicked":         e.Clicked,
		"clicked_at":      nullTime(e.ClickedAt),
		"session_id":      e.SessionID,
		"user_id":         nullInt64(e.UserID),
		"device_type":     e.DeviceType,
		"browser":         e.Browser,
		"created_at":      e.CreatedAt,
	}
}

// InsertImpressions stores a batch of rows in a single statement.
func (a *CTRAdapter) InsertImpressions(ctx context.Context, events []*entities.CTREvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]interface{}, 0, len(events))
	for _, e := range events {
		rows = append(rows, ctrRecord(e))
	}

	query, args, err := a.db.Insert(ctrEventsTable).Rows(rows...).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build impressions insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to insert impressions", err)
	}
	return nil
}

// Insert stores a single row and returns its id.
func (a *CTRAdapter) Insert(ctx context.Context, event *entities.CTREvent) (int64, error) {
	if event == nil {
		return 0, apperrors.NewInternalError("ctr event is nil", fmt.Errorf("ctr event is nil"))
	}

	query, args, err := a.db.Insert(ctrEventsTable).Rows(ctrRecord(event)).Returning("id").ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build ctr insert query", err)
	}

	var id int64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, apperrors.NewInternalError("failed to insert ctr event", err)
	}
	event.ID = id
	return id, nil
}

// MarkClicked sets clicked on the newest unclicked impression that matches.
func (a *CTRAdapter) MarkClicked(ctx context.Context, m entities.ClickMatch) (bool, error) {
	newest := a.db.From(ctrEventsTable).
		Select("id").
		Where(
			goqu.C("result_id").Eq(m.ResultID),
			goqu.C("result_position").Eq(m.Position),
			goqu.C("session_id").Eq(m.SessionID),
			goqu.C("clicked").IsFalse(),
			goqu.C("created_at").Gte(m.Since),
		).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(1)

	query, args, err := a.db.Update(ctrEventsTable).
		Set(goqu.Record{"clicked": true, "clicked_at": m.ClickedAt}).
		Where(goqu.C("id").In(newest)).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build click update query", err)
	}

	res, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to mark impression clicked", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to read updated row count", err)
	}
	return n > 0, nil
}

// CTRByPosition returns impression and click counts per position up to
// maxPosition. CTR is left for the caller to compute.
func (a *CTRAdapter) CTRByPosition(ctx context.Context, since time.Time, maxPosition int) ([]entities.PositionCTR, error) {
	if maxPosition <= 0 {
		maxPosition = 20
	}

	query, args, err := a.db.From(ctrEventsTable).
		Select(
			goqu.C("result_position"),
			goqu.COUNT(goqu.Star()).As("impressions"),
			goqu.L("COALESCE(SUM(CASE WHEN clicked THEN 1 ELSE 0 END), 0)").As("clicks"),
		).
		Where(
			goqu.C("created_at").Gte(since),
			goqu.C("result_position").Gte(1),
			goqu.C("result_position").Lte(maxPosition),
		).
		GroupBy("result_position").
		Order(goqu.C("result_position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build ctr by position query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query ctr by position", err)
	}
	defer rows.Close()

	out := []entities.PositionCTR{}
	for rows.Next() {
		var p entities.PositionCTR
		if err := rows.Scan(&p.Position, &p.Impressions, &p.Clicks); err != nil {
			return nil, apperrors.NewInternalError("failed to scan ctr row", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate ctr rows", err)
	}

	return out, nil
}

// TopClicked returns the most clicked results.
func (a *CTRAdapter) TopClicked(ctx context.Context, since time.Time, limit int) ([]entities.ClickedResult, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := a.db.From(ctrEventsTable).
		Select(
			goqu.C("result_id"),
			goqu.C("result_title"),
			goqu.C("result_url"),
			goqu.AVG("result_position").As("avg_position"),
			goqu.COUNT(goqu.Star()).As("total_clicks"),
			goqu.COALESCE(goqu.AVG("result_score"), 0).As("avg_score"),
		).
		Where(
			goqu.C("clicked").IsTrue(),
			goqu.C("created_at").Gte(since),
		).
		GroupBy("result_id", "result_title", "result_url").
		Order(goqu.I("total_clicks").Desc(), goqu.C("result_id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build top clicked query", err)
	}

	out := []entities.ClickedResult{}
	if err := a.dbx.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to query top clicked results", err)
	}

	return out, nil
}

// DeleteOlderThan removes rows created before cutoff.
func (a *CTRAdapter) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return deleteOlderThan(ctx, a.client, a.db, ctrEventsTable, cutoff)
}
