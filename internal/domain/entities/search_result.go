package entities

import (
	"strings"
	"time"
)

// UnknownType is the content type assigned to results that arrive without one.
const UnknownType = "unknown"

// dateLayouts are the timestamp formats the search service is known to emit.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// SearchResult is one candidate document returned by the hybrid search service.
// The ranking pipeline reorders, filters and slices results but never mutates them.
type SearchResult struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Type       string   `json:"type"`
	Score      float64  `json:"score"`
	AIScore    *float64 `json:"ai_score,omitempty"`
	Date       string   `json:"date,omitempty"`
	Author     string   `json:"author,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// ContentType returns the result's type, or UnknownType when it has none.
func (r SearchResult) ContentType() string {
	if t := strings.TrimSpace(r.Type); t != "" {
		return t
	}
	return UnknownType
}

// PublishedAt parses Date. ok is false when the date is missing or unparsable.
func (r SearchResult) PublishedAt() (time.Time, bool) {
	raw := strings.TrimSpace(r.Date)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResultGroup is a contiguous run of results that the reranker placed together.
// Later stages may reorder or drop results inside a group but never move groups.
type ResultGroup struct {
	Key       string         `json:"key"`
	Protected bool           `json:"protected,omitempty"`
	Results   []SearchResult `json:"results"`
}

// Flatten concatenates groups in order.
func Flatten(groups []ResultGroup) []SearchResult {
	n := 0
	for _, g := range groups {
		n += len(g.Results)
	}
	out := make([]SearchResult, 0, n)
	for _, g := range groups {
		out = append(out, g.Results...)
	}
	return out
}
