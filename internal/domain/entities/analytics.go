package entities

import "time"

// QueryCount is a query and how many times it was searched.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// BreakdownCount is a count for one value of a dimension (device type, browser).
type BreakdownCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// DailyCount is the number of searches on one calendar day.
type DailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

// SearchTotals are the headline numbers for a window.
type SearchTotals struct {
	TotalSearches       int64   `json:"total_searches"`
	SearchesWithResults int64   `json:"searches_with_results"`
	AvgTimeTaken        float64 `json:"avg_time_taken"`
}

// AnalyticsStats is the dashboard rollup for the last Days days.
type AnalyticsStats struct {
	Days                int              `json:"days"`
	TotalSearches       int64            `json:"total_searches"`
	SearchesWithResults int64            `json:"searches_with_results"`
	ZeroResultSearches  int64            `json:"zero_result_searches"`
	ZeroResultRate      float64          `json:"zero_result_rate"`
	AvgTimeTaken        float64          `json:"avg_time_taken"`
	PopularQueries      []QueryCount     `json:"popular_queries"`
	ZeroResultQueries   []QueryCount     `json:"zero_result_queries"`
	DeviceBreakdown     []BreakdownCount `json:"device_breakdown"`
	BrowserBreakdown    []BreakdownCount `json:"browser_breakdown"`
	DailyCounts         []DailyCount     `json:"daily_counts"`
}

// PositionCTR is the click-through rate for one result position.
// CTR is 0 when there were no impressions.
type PositionCTR struct {
	Position    int     `json:"position"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

// ClickedResult is a result ranked by how often it was clicked.
type ClickedResult struct {
	ResultID    string  `json:"result_id" db:"result_id"`
	Title       string  `json:"title" db:"result_title"`
	URL         string  `json:"url" db:"result_url"`
	AvgPosition float64 `json:"avg_position" db:"avg_position"`
	TotalClicks int64   `json:"total_clicks" db:"total_clicks"`
	AvgScore    float64 `json:"avg_score" db:"avg_score"`
}

// CTRSummary is the overall click-through rate for a window.
type CTRSummary struct {
	Days        int           `json:"days"`
	Impressions int64         `json:"impressions"`
	Clicks      int64         `json:"clicks"`
	CTR         float64       `json:"ctr"`
	ByPosition  []PositionCTR `json:"by_position"`
}
