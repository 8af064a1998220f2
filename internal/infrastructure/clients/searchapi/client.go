package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
var ErrCircuitOpen = errors.New("search api circuit open")

// Client is the hybrid keyword + vector + LLM search service.
type Client interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	Health(ctx context.Context) error
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query          string `json:"query"`
	Limit          int    `json:"limit"`
	Offset         int    `json:"offset"`
	IncludeAnswer  bool   `json:"include_answer"`
	AIInstructions string `json:"ai_instructions,omitempty"`
}

// SearchResponse is the envelope returned by POST /search.
type SearchResponse struct {
	Success  bool                   `json:"success"`
	Results  []Result               `json:"results"`
	Answer   string                 `json:"answer,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Result is one document in a SearchResponse.
type Result struct {
	ID         FlexibleID `json:"id"`
	Title      string     `json:"title"`
	URL        string     `json:"url"`
	Type       string     `json:"type"`
	Score      float64    `json:"score"`
	AIScore    *float64   `json:"ai_score,omitempty"`
	Date       string     `json:"date,omitempty"`
	Author     string     `json:"author,omitempty"`
	Excerpt    string     `json:"excerpt,omitempty"`
	Thumbnail  string     `json:"thumbnail,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// FlexibleID accepts both string and numeric JSON ids.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid result id %s: %w", raw, err)
	}
	*id = FlexibleID(n.String())
	return nil
}

// Config configures HTTPClient.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// HTTPClient calls the search service over HTTP behind a circuit breaker.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a new search API client.
func NewClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	threshold := cfg.FailureThreshold

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "search-api",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			},
		}),
	}
}

// Search runs a query against POST /search.
func (c *HTTPClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp := &SearchResponse{}
		if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body), resp); err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return out.(*SearchResponse), nil
}

// Health calls GET /health.
func (c *HTTPClient) Health(ctx context.Context) error {
	var out map[string]interface{}
	return c.doJSON(ctx, http.MethodGet, c.baseURL+"/health", nil, &out)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, body io.Reader, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("search api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode search api response: %w", err)
	}
	return nil
}
