package services

import (
	"sort"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

const (
	// ProtectedGroupKey labels the group of results exempt from type regrouping.
	ProtectedGroupKey = "protected"
	// RelevanceGroupKey labels the single group produced for navigational queries.
	RelevanceGroupKey = "relevance"
)

// RankingConfig holds the operator's content-type priority settings.
type RankingConfig struct {
	// PriorityOrder lists content types from most to least preferred. Types
	// not listed follow in lexicographic order.
	PriorityOrder []string
	// ProtectedCount is how many leading results keep their place for
	// informational and general queries.
	ProtectedCount int
	// RelevanceThreshold protects any result scoring at or above it.
	RelevanceThreshold float64
}

// DefaultRankingConfig returns the plugin defaults.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		PriorityOrder:      []string{"page", "post"},
		ProtectedCount:     3,
		RelevanceThreshold: 0.85,
	}
}

// Rerank reorders an upstream-ranked list by intent and returns the ordered
// groups it built. The input slice is not modified.
//
//   - navigational: one group in the original order.
//   - transactional: strict priority grouping of every result.
//   - informational, general: protected results first in original order,
//     then strict priority grouping of the rest.
func Rerank(results []entities.SearchResult, intent entities.Intent, cfg RankingConfig) []entities.ResultGroup {
	if len(results) == 0 {
		return nil
	}

	switch intent {
	case entities.IntentNavigational:
		return []entities.ResultGroup{{
			Key:     RelevanceGroupKey,
			Results: append([]entities.SearchResult(nil), results...),
		}}
	case entities.IntentTransactional:
		return groupByPriority(results, cfg.PriorityOrder)
	default:
		return protectedPriority(results, cfg)
	}
}

func protectedPriority(results []entities.SearchResult, cfg RankingConfig) []entities.ResultGroup {
	var protected, regular []entities.SearchResult
	for i, r := range results {
		if i < cfg.ProtectedCount || r.Score >= cfg.RelevanceThreshold {
			protected = append(protected, r)
		} else {
			regular = append(regular, r)
		}
	}

	groups := make([]entities.ResultGroup, 0, 1+len(cfg.PriorityOrder))
	if len(protected) > 0 {
		groups = append(groups, entities.ResultGroup{
			Key:       ProtectedGroupKey,
			Protected: true,
			Results:   protected,
		})
	}
	return append(groups, groupByPriority(regular, cfg.PriorityOrder)...)
}

// groupByPriority buckets results by content type, sorts each bucket by score
// descending (stable, so equal scores keep upstream order) and emits buckets in
// priority order followed by unlisted types sorted by name.
func groupByPriority(results []entities.SearchResult, priorityOrder []string) []entities.ResultGroup {
	if len(results) == 0 {
		return nil
	}

	buckets := make(map[string][]entities.SearchResult)
	for _, r := range results {
		t := r.ContentType()
		buckets[t] = append(buckets[t], r)
	}
	for _, bucket := range buckets {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Score > bucket[j].Score
		})
	}

	groups := make([]entities.ResultGroup, 0, len(buckets))
	emitted := make(map[string]bool, len(buckets))
	for _, t := range priorityOrder {
		bucket, ok := buckets[t]
		if !ok || emitted[t] {
			continue
		}
		emitted[t] = true
		groups = append(groups, entities.ResultGroup{Key: t, Results: bucket})
	}

	rest := make([]string, 0, len(buckets)-len(emitted))
	for t := range buckets {
		if !emitted[t] {
			rest = append(rest, t)
		}
	}
	sort.Strings(rest)
	for _, t := range rest {
		groups = append(groups, entities.ResultGroup{Key: t, Results: buckets[t]})
	}

	return groups
}
