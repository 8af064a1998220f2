package services

import (
	"sort"
	"strings"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

// PaginationConfig bounds the page size a caller may request.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultPaginationConfig returns the plugin defaults.
func DefaultPaginationConfig() PaginationConfig {
	return PaginationConfig{DefaultLimit: 10, MaxLimit: 50}
}

// Clamp normalizes an offset and limit. Negative offsets become 0 and a limit
// outside [1, MaxLimit] falls back to DefaultLimit.
func (c PaginationConfig) Clamp(offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > c.MaxLimit {
		limit = c.DefaultLimit
	}
	return offset, limit
}

// FilterOptions are the caller-supplied refinements applied after reranking.
type FilterOptions struct {
	Type   string
	Date   entities.DateWindow
	Sort   entities.SortMode
	Offset int
	Limit  int
}

// FilteredPage is one page of the filtered, sorted list.
type FilteredPage struct {
	Results []entities.SearchResult
	// Total is the number of results that passed the filters.
	Total   int
	HasMore bool
	Offset  int
	Limit   int
}

// NextOffset is the offset of the following page, or 0 when there is none.
func (p FilteredPage) NextOffset() int {
	if !p.HasMore {
		return 0
	}
	return p.Offset + len(p.Results)
}

// ApplyFilters filters each group, re-sorts inside each group when a sort
// override is set, then flattens and slices out one page. Group order is never
// changed, so protected results stay ahead of type groups whatever the sort.
func ApplyFilters(groups []entities.ResultGroup, opts FilterOptions, pg PaginationConfig, now time.Time) FilteredPage {
	offset, limit := pg.Clamp(opts.Offset, opts.Limit)

	var cutoff time.Time
	window, hasWindow := opts.Date.Duration()
	if hasWindow {
		cutoff = now.Add(-window)
	}

	filtered := make([]entities.ResultGroup, 0, len(groups))
	for _, g := range groups {
		kept := make([]entities.SearchResult, 0, len(g.Results))
		for _, r := range g.Results {
			if opts.Type != "" && r.ContentType() != opts.Type {
				continue
			}
			if hasWindow {
				// Unparseable dates pass the filter.
				if published, ok := r.PublishedAt(); ok && published.Before(cutoff) {
					continue
				}
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			continue
		}
		sortGroup(kept, opts.Sort)
		filtered = append(filtered, entities.ResultGroup{Key: g.Key, Protected: g.Protected, Results: kept})
	}

	all := entities.Flatten(filtered)
	page := FilteredPage{Total: len(all), Offset: offset, Limit: limit}
	if offset >= len(all) {
		page.Results = []entities.SearchResult{}
		return page
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page.Results = all[offset:end]
	page.HasMore = len(page.Results) == limit
	return page
}

func sortGroup(results []entities.SearchResult, mode entities.SortMode) {
	switch mode {
	case entities.SortDateDesc:
		sortByDate(results, true)
	case entities.SortDateAsc:
		sortByDate(results, false)
	case entities.SortTitleAsc:
		sort.SliceStable(results, func(i, j int) bool {
			return strings.ToLower(results[i].Title) < strings.ToLower(results[j].Title)
		})
	}
}

// sortByDate orders dated results and leaves undated ones at the end in their
// existing order.
func sortByDate(results []entities.SearchResult, newestFirst bool) {
	sort.SliceStable(results, func(i, j int) bool {
		ti, okI := results[i].PublishedAt()
		tj, okJ := results[j].PublishedAt()
		switch {
		case okI && !okJ:
			return true
		case !okI:
			return false
		case newestFirst:
			return ti.After(tj)
		default:
			return ti.Before(tj)
		}
	})
}
