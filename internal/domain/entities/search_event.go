package entities

import (
	"time"
)

// SearchEvent represents a single tracked search for analytics.
// Rows are inserted once and only removed by retention cleanup.
type SearchEvent struct {
	ID          int64     `json:"id" db:"id"`
	Query       string    `json:"query" db:"query"`
	ResultCount int       `json:"result_count" db:"result_count"`
	TimeTaken   float64   `json:"time_taken" db:"time_taken"`
	HasResults  bool      `json:"has_results" db:"has_results"`
	Intent      Intent    `json:"intent,omitempty" db:"intent"`
	SessionID   string    `json:"session_id,omitempty" db:"session_id"`
	UserID      *int64    `json:"user_id,omitempty" db:"user_id"`
	DeviceType  string    `json:"device_type,omitempty" db:"device_type"`
	Browser     string    `json:"browser,omitempty" db:"browser"`
	Locale      string    `json:"locale,omitempty" db:"locale"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// RecordedQuery is the slice of a stored SearchEvent the deduplicator needs.
type RecordedQuery struct {
	Query     string    `json:"query" db:"query"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DeviceInfo is the client metadata attached to analytics rows.
type DeviceInfo struct {
	DeviceType string `json:"device_type,omitempty"`
	Browser    string `json:"browser,omitempty"`
	Locale     string `json:"locale,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}
