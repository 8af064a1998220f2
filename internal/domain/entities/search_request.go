package entities

import "time"

// DateWindow limits results to those published within a trailing window.
type DateWindow string

const (
	DateWindowAny   DateWindow = ""
	DateWindowDay   DateWindow = "24h"
	DateWindowWeek  DateWindow = "7d"
	DateWindowMonth DateWindow = "30d"
	DateWindowYear  DateWindow = "365d"
)

// Duration returns the window length. ok is false for DateWindowAny and unknown values.
func (w DateWindow) Duration() (time.Duration, bool) {
	switch w {
	case DateWindowDay:
		return 24 * time.Hour, true
	case DateWindowWeek:
		return 7 * 24 * time.Hour, true
	case DateWindowMonth:
		return 30 * 24 * time.Hour, true
	case DateWindowYear:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// SortMode overrides the order inside each result group.
type SortMode string

const (
	SortRelevance SortMode = "relevance"
	SortDateDesc  SortMode = "date-desc"
	SortDateAsc   SortMode = "date-asc"
	SortTitleAsc  SortMode = "title-asc"
)

// IsValid checks if the sort mode is supported.
func (s SortMode) IsValid() bool {
	switch s {
	case SortRelevance, SortDateDesc, SortDateAsc, SortTitleAsc:
		return true
	}
	return false
}

// SearchRequest is the typed form of an inbound search call. Limit and Offset
// are clamped once, when the request is built.
type SearchRequest struct {
	Query         string     `json:"query"`
	Limit         int        `json:"limit"`
	Offset        int        `json:"offset"`
	IncludeAnswer bool       `json:"include_answer"`
	FilterType    string     `json:"filter_type,omitempty"`
	FilterDate    DateWindow `json:"filter_date,omitempty"`
	FilterSort    SortMode   `json:"filter_sort,omitempty"`
	SessionID     string     `json:"session_id,omitempty"`
	UserID        *int64     `json:"user_id,omitempty"`
	Device        DeviceInfo `json:"device"`
}

// Pagination describes the page window returned to the client.
// HasMore is true whenever a full page came back, so it can be true on the
// last page when the remaining results exactly fill it.
type Pagination struct {
	Offset     int  `json:"offset"`
	Limit      int  `json:"limit"`
	HasMore    bool `json:"hasMore"`
	NextOffset int  `json:"nextOffset"`
}

// SearchMetadata carries non-result information about a search.
type SearchMetadata struct {
	Intent    Intent  `json:"intent,omitempty"`
	Total     int     `json:"total"`
	TimeTaken float64 `json:"time_taken"`
	SearchID  int64   `json:"search_id,omitempty"`
	Answer    string  `json:"answer,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// SearchResponse is the envelope returned to the caller.
type SearchResponse struct {
	Success    bool           `json:"success"`
	Results    []SearchResult `json:"results"`
	Pagination Pagination     `json:"pagination"`
	Metadata   SearchMetadata `json:"metadata"`
}
