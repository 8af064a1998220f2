package services

import (
	"context"
	"strings"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/repositories"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
)

// DedupConfig sets the suppression windows for repeated queries in a session.
type DedupConfig struct {
	// ExactWindow suppresses the same query from the same session.
	ExactWindow time.Duration
	// PartialWindow suppresses a query that contains, or is contained in, a
	// different recent query from the same session. This absorbs keystroke
	// refinement from live search ("wast" then "waste").
	PartialWindow time.Duration
}

// DefaultDedupConfig returns the 30s exact and 60s partial windows.
func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		ExactWindow:   30 * time.Second,
		PartialWindow: 60 * time.Second,
	}
}

// SearchEventDeduplicator decides whether a search event should be persisted.
type SearchEventDeduplicator struct {
	cfg DedupConfig
	now func() time.Time
}

// NewSearchEventDeduplicator creates a deduplicator. A nil clock uses time.Now.
func NewSearchEventDeduplicator(cfg DedupConfig, clock func() time.Time) *SearchEventDeduplicator {
	if clock == nil {
		clock = time.Now
	}
	return &SearchEventDeduplicator{cfg: cfg, now: clock}
}

// ShouldRecord reports whether the query should be recorded for the session.
// Events without a session are always recorded, and a failed history lookup
// records rather than drops.
func (d *SearchEventDeduplicator) ShouldRecord(ctx context.Context, query, sessionID string, history repositories.QueryHistoryLookup) bool {
	if sessionID == "" || history == nil {
		return true
	}

	q := normalizeQuery(query)
	now := d.now()
	lookback := d.cfg.ExactWindow
	if d.cfg.PartialWindow > lookback {
		lookback = d.cfg.PartialWindow
	}

	recent, err := history.RecentSessionQueries(ctx, sessionID, now.Add(-lookback))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("session_id", sessionID).
			Msg("search history lookup failed, recording event")
		return true
	}

	for _, prev := range recent {
		age := now.Sub(prev.CreatedAt)
		if age < 0 {
			age = 0
		}
		p := normalizeQuery(prev.Query)

		if p == q {
			if age <= d.cfg.ExactWindow {
				return false
			}
			continue
		}
		if q != "" && p != "" && age <= d.cfg.PartialWindow &&
			(strings.Contains(q, p) || strings.Contains(p, q)) {
			return false
		}
	}
	return true
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}
