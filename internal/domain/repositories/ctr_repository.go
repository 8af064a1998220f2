package repositories

import (
	"context"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

// CTRRepository persists impressions and clicks.
type CTRRepository interface {
	InsertImpressions(ctx context.Context, events []*entities.CTREvent) error
	Insert(ctx context.Context, event *entities.CTREvent) (int64, error)
	// MarkClicked flips the newest unclicked impression matching m. It reports
	// false when nothing matched.
	MarkClicked(ctx context.Context, m entities.ClickMatch) (bool, error)
	CTRByPosition(ctx context.Context, since time.Time, maxPosition int) ([]entities.PositionCTR, error)
	TopClicked(ctx context.Context, since time.Time, limit int) ([]entities.ClickedResult, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
