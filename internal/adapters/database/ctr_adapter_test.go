package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

func TestCTRAdapter_InsertImpressions(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewCTRAdapter(client)

	mock.ExpectExec(`INSERT INTO "ctr_events" .* VALUES \(.*\), \(.*\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := adapter.InsertImpressions(context.Background(), []*entities.CTREvent{
		{ResultID: "r1", ResultPosition: 1, SessionID: "s1"},
		{ResultID: "r2", ResultPosition: 2, SessionID: "s1"},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCTRAdapter_InsertImpressionsEmpty(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewCTRAdapter(client)

	require.NoError(t, adapter.InsertImpressions(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCTRAdapter_Insert(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewCTRAdapter(client)
	clickedAt := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO "ctr_events" .* RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	event := &entities.CTREvent{ResultID: "r1", ResultPosition: 3, Clicked: true, ClickedAt: &clickedAt}
	id, err := adapter.Insert(context.Background(), event)

	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.Equal(t, int64(5), event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCTRAdapter_MarkClicked(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"matched", 1, true},
		{"no impression", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := setupMockDB(t)
			adapter := NewCTRAdapter(client)
			now := time.Now().UTC()

			mock.ExpectExec(`UPDATE "ctr_events" SET .*"clicked_at".* WHERE \("id" IN \(\(SELECT "id" FROM "ctr_events" WHERE .*"clicked" IS FALSE.*LIMIT 1\)\)\)`).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := adapter.MarkClicked(context.Background(), entities.ClickMatch{
				ResultID:  "r1",
				Position:  2,
				SessionID: "s1",
				Since:     now.Add(-30 * time.Minute),
				ClickedAt: now,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCTRAdapter_CTRByPosition(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewCTRAdapter(client)

	mock.ExpectQuery(`SELECT "result_position", COUNT\(\*\) AS "impressions".*GROUP BY "result_position"`).
		WillReturnRows(sqlmock.NewRows([]string{"result_position", "impressions", "clicks"}).
			AddRow(1, int64(100), int64(10)).
			AddRow(2, int64(80), int64(4)))

	rows, err := adapter.CTRByPosition(context.Background(), time.Now().AddDate(0, 0, -30), 20)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, entities.PositionCTR{Position: 1, Impressions: 100, Clicks: 10}, rows[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCTRAdapter_TopClicked(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := NewCTRAdapter(client)

	mock.ExpectQuery(`"clicked" IS TRUE.*GROUP BY "result_id", "result_title", "result_url".*LIMIT 10`).
		WillReturnRows(sqlmock.NewRows([]string{"result_id", "result_title", "result_url", "avg_position", "total_clicks", "avg_score"}).
			AddRow("r9", "Bin collection days", "https://example.org/bins", 1.5, int64(14), 0.91))

	top, err := adapter.TopClicked(context.Background(), time.Now().AddDate(0, 0, -30), 10)

	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Bin collection days", top[0].Title)
	assert.Equal(t, int64(14), top[0].TotalClicks)
	assert.InDelta(t, 1.5, top[0].AvgPosition, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}
