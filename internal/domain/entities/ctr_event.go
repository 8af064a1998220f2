package entities

import "time"

// CTREvent records that a result was shown at a position for a search, and
// whether it was clicked. Impressions are inserted with Clicked=false and
// flipped in place when the user activates the result.
type CTREvent struct {
	ID             int64      `json:"id" db:"id"`
	SearchID       *int64     `json:"search_id,omitempty" db:"search_id"`
	Query          string     `json:"query" db:"query"`
	ResultID       string     `json:"result_id" db:"result_id"`
	ResultTitle    string     `json:"result_title" db:"result_title"`
	ResultURL      string     `json:"result_url" db:"result_url"`
	ResultPosition int        `json:"result_position" db:"result_position"`
	ResultScore    float64    `json:"result_score" db:"result_score"`
	Clicked        bool       `json:"clicked" db:"clicked"`
	ClickedAt      *time.Time `json:"click_timestamp,omitempty" db:"clicked_at"`
	SessionID      string     `json:"session_id,omitempty" db:"session_id"`
	UserID         *int64     `json:"user_id,omitempty" db:"user_id"`
	DeviceType     string     `json:"device_type,omitempty" db:"device_type"`
	Browser        string     `json:"browser,omitempty" db:"browser"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// ClickMatch identifies the impression a click should be attributed to.
type ClickMatch struct {
	ResultID  string
	Position  int
	SessionID string
	Since     time.Time
	ClickedAt time.Time
}
