package services

import (
	"context"
	"strings"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/domain/repositories"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
	apperrors "github.com/ivanmandinski/aisearch-sub002/pkg/errors"
)

// CTRConfig configures click attribution and reporting.
type CTRConfig struct {
	CacheEnabled bool
	AggregateTTL time.Duration
	// ClickWindow is how far back a click may be matched to an impression.
	ClickWindow     time.Duration
	MaxPosition     int
	TopClickedLimit int
}

// DefaultCTRConfig returns the plugin defaults.
func DefaultCTRConfig() CTRConfig {
	return CTRConfig{
		CacheEnabled:    true,
		AggregateTTL:    time.Hour,
		ClickWindow:     30 * time.Minute,
		MaxPosition:     20,
		TopClickedLimit: 10,
	}
}

// Impression is one displayed result.
type Impression struct {
	ResultID string  `json:"result_id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Position int     `json:"position"`
	Score    float64 `json:"score"`
}

// ImpressionBatch is the set of results shown for one search.
type ImpressionBatch struct {
	SearchID  *int64              `json:"search_id,omitempty"`
	Query     string              `json:"query"`
	SessionID string              `json:"session_id"`
	UserID    *int64              `json:"user_id,omitempty"`
	Device    entities.DeviceInfo `json:"device"`
	Results   []Impression        `json:"results"`
}

// searchRef drops search ids that cannot name a stored search event.
func searchRef(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

// Click is a user click on a displayed result.
type Click struct {
	SearchID  *int64              `json:"search_id,omitempty"`
	Query     string              `json:"query"`
	ResultID  string              `json:"result_id"`
	Title     string              `json:"title"`
	URL       string              `json:"url"`
	Position  int                 `json:"position"`
	Score     float64             `json:"score"`
	SessionID string              `json:"session_id"`
	UserID    *int64              `json:"user_id,omitempty"`
	Device    entities.DeviceInfo `json:"device"`
}

// ClickOutcome reports how a click was stored.
type ClickOutcome struct {
	// Matched is true when an earlier impression was marked clicked.
	Matched bool
	// EventID is set when a standalone clicked row was inserted instead.
	EventID int64
}

// CTRService records impressions and clicks and reports click-through rates.
type CTRService struct {
	repo    repositories.CTRRepository
	cache   providers.CacheProvider
	cfg     CTRConfig
	metrics *observability.Metrics
	now     func() time.Time
}

// NewCTRService creates the service. cache may be nil.
func NewCTRService(repo repositories.CTRRepository, cache providers.CacheProvider, cfg CTRConfig, metrics *observability.Metrics) *CTRService {
	if !cfg.CacheEnabled {
		cache = nil
	}
	return &CTRService{repo: repo, cache: cache, cfg: cfg, metrics: metrics, now: time.Now}
}

// RecordImpressions stores one unclicked row per displayed result and returns
// how many were written. Non-positive positions are replaced by list order.
func (s *CTRService) RecordImpressions(ctx context.Context, batch ImpressionBatch) (int, error) {
	if len(batch.Results) == 0 {
		return 0, nil
	}

	now := s.now().UTC()
	events := make([]*entities.CTREvent, 0, len(batch.Results))
	for i, imp := range batch.Results {
		if strings.TrimSpace(imp.ResultID) == "" {
			continue
		}
		pos := imp.Position
		if pos <= 0 {
			pos = i + 1
		}
		events = append(events, &entities.CTREvent{
			SearchID:       searchRef(batch.SearchID),
			Query:          batch.Query,
			ResultID:       imp.ResultID,
			ResultTitle:    imp.Title,
			ResultURL:      imp.URL,
			ResultPosition: pos,
			ResultScore:    imp.Score,
			SessionID:      batch.SessionID,
			UserID:         batch.UserID,
			DeviceType:     batch.Device.DeviceType,
			Browser:        batch.Device.Browser,
			CreatedAt:      now,
		})
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := s.repo.InsertImpressions(ctx, events); err != nil {
		return 0, err
	}
	invalidatePrefix(ctx, s.cache, ctrCachePrefix)
	return len(events), nil
}

// RecordClick marks the newest matching impression from the same session as
// clicked. Without a match it stores a standalone clicked row so the signal
// is never dropped.
func (s *CTRService) RecordClick(ctx context.Context, click Click) (ClickOutcome, error) {
	if strings.TrimSpace(click.ResultID) == "" {
		return ClickOutcome{}, apperrors.NewValidationError("result_id is required")
	}
	if click.Position < 1 {
		return ClickOutcome{}, apperrors.NewValidationError("position must be at least 1")
	}

	now := s.now().UTC()
	log := observability.LoggerFromContext(ctx)

	if click.SessionID != "" {
		matched, err := s.repo.MarkClicked(ctx, entities.ClickMatch{
			ResultID:  click.ResultID,
			Position:  click.Position,
			SessionID: click.SessionID,
			Since:     now.Add(-s.cfg.ClickWindow),
			ClickedAt: now,
		})
		if err != nil {
			log.Warn().Err(err).Str("result_id", click.ResultID).Msg("click match failed, storing standalone click")
		} else if matched {
			invalidatePrefix(ctx, s.cache, ctrCachePrefix)
			return ClickOutcome{Matched: true}, nil
		}
	}

	id, err := s.repo.Insert(ctx, &entities.CTREvent{
		SearchID:       searchRef(click.SearchID),
		Query:          click.Query,
		ResultID:       click.ResultID,
		ResultTitle:    click.Title,
		ResultURL:      click.URL,
		ResultPosition: click.Position,
		ResultScore:    click.Score,
		Clicked:        true,
		ClickedAt:      &now,
		SessionID:      click.SessionID,
		UserID:         click.UserID,
		DeviceType:     click.Device.DeviceType,
		Browser:        click.Device.Browser,
		CreatedAt:      now,
	})
	if err != nil {
		return ClickOutcome{}, err
	}
	invalidatePrefix(ctx, s.cache, ctrCachePrefix)
	return ClickOutcome{EventID: id}, nil
}

// CTRByPosition returns impressions, clicks and CTR per position.
func (s *CTRService) CTRByPosition(ctx context.Context, days int) ([]entities.PositionCTR, error) {
	days = clampDays(days)
	key := analyticsCacheKey(ctrCachePrefix, "by_position", map[string]int{"days": days, "max_position": s.cfg.MaxPosition})

	return cachedQuery(ctx, s.cache, s.metrics, ctrCachePrefix, key, s.cfg.AggregateTTL,
		func(ctx context.Context) ([]entities.PositionCTR, error) {
			rows, err := s.repo.CTRByPosition(ctx, s.now().UTC().AddDate(0, 0, -days), s.cfg.MaxPosition)
			if err != nil {
				return nil, err
			}
			for i := range rows {
				rows[i].CTR = clickThroughRate(rows[i].Clicks, rows[i].Impressions)
			}
			return rows, nil
		})
}

// Summary returns the overall CTR for the window with the per-position breakdown.
func (s *CTRService) Summary(ctx context.Context, days int) (*entities.CTRSummary, error) {
	rows, err := s.CTRByPosition(ctx, days)
	if err != nil {
		return nil, err
	}

	summary := &entities.CTRSummary{Days: clampDays(days), ByPosition: rows}
	for _, r := range rows {
		summary.Impressions += r.Impressions
		summary.Clicks += r.Clicks
	}
	summary.CTR = clickThroughRate(summary.Clicks, summary.Impressions)
	return summary, nil
}

// TopClicked returns the most clicked results in the window.
func (s *CTRService) TopClicked(ctx context.Context, days int) ([]entities.ClickedResult, error) {
	days = clampDays(days)
	key := analyticsCacheKey(ctrCachePrefix, "top_clicked", map[string]int{"days": days, "limit": s.cfg.TopClickedLimit})

	return cachedQuery(ctx, s.cache, s.metrics, ctrCachePrefix, key, s.cfg.AggregateTTL,
		func(ctx context.Context) ([]entities.ClickedResult, error) {
			return s.repo.TopClicked(ctx, s.now().UTC().AddDate(0, 0, -days), s.cfg.TopClickedLimit)
		})
}

// RetentionCleanup deletes CTR rows older than retentionDays.
func (s *CTRService) RetentionCleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, apperrors.NewValidationError("retention days must be at least 1")
	}
	deleted, err := s.repo.DeleteOlderThan(ctx, s.now().UTC().AddDate(0, 0, -retentionDays))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		invalidatePrefix(ctx, s.cache, ctrCachePrefix)
	}
	return deleted, nil
}

func clickThroughRate(clicks, impressions int64) float64 {
	if impressions == 0 {
		return 0
	}
	return float64(clicks) / float64(impressions)
}
