package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/ivanmandinski/aisearch-sub002/pkg/config"
	"github.com/ivanmandinski/aisearch-sub002/pkg/retry"
)

const (
	connectionTimeout = 5 * time.Second
	healthTimeout     = 2 * time.Second
)

// Client holds a Typesense connection bound to the site content collection.
type Client struct {
	ts         *typesense.Client
	url        string
	collection string
}

// NewClient connects to Typesense, retrying the health endpoint with
// exponential backoff until the node reports healthy.
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	ts := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(connectionTimeout),
	)
	c := &Client{ts: ts, url: cfg.URL, collection: cfg.Collection}

	err := retry.DoWithLog(context.Background(), retry.DefaultConfig(), "typesense", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		defer cancel()
		return c.healthy(ctx)
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Str("url", cfg.URL).Msg("Typesense not reachable yet")
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.URL).Str("collection", cfg.Collection).Msg("Connected to Typesense")
	return c, nil
}

func (c *Client) healthy(ctx context.Context) error {
	ok, err := c.ts.Health(ctx, healthTimeout)
	if err != nil {
		return fmt.Errorf("typesense health at %s: %w", c.url, err)
	}
	if !ok {
		return fmt.Errorf("typesense at %s reports unhealthy", c.url)
	}
	return nil
}

// Client returns the underlying typesense-go client.
func (c *Client) Client() *typesense.Client {
	return c.ts
}

func (c *Client) Collection() string {
	return c.collection
}

// InitSchema creates the site content collection if it is missing. An
// existing collection is left untouched.
func (c *Client) InitSchema(ctx context.Context) error {
	existing, err := c.ts.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("list typesense collections: %w", err)
	}
	for _, col := range existing {
		if col.Name == c.collection {
			log.Debug().Str("collection", c.collection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.ts.Collections().Create(ctx, siteContentSchema(c.collection)); err != nil {
		return fmt.Errorf("create typesense collection %q: %w", c.collection, err)
	}
	log.Info().Str("collection", c.collection).Msg("Created Typesense collection")
	return nil
}

// siteContentSchema describes one indexed page or post. Facet fields back
// the type and taxonomy filters, published_at backs date sorting.
func siteContentSchema(name string) *api.CollectionSchema {
	text := func(field string) api.Field {
		return api.Field{Name: field, Type: "string", Optional: pointer.True()}
	}
	facet := func(field, typ string) api.Field {
		return api.Field{Name: field, Type: typ, Optional: pointer.True(), Facet: pointer.True()}
	}

	return &api.CollectionSchema{
		Name: name,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "url", Type: "string"},
			{Name: "type", Type: "string", Facet: pointer.True()},
			text("excerpt"),
			text("content"),
			text("date"),
			text("thumbnail"),
			facet("author", "string"),
			facet("categories", "string[]"),
			facet("tags", "string[]"),
			{Name: "ai_score", Type: "float", Optional: pointer.True()},
			{Name: "published_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("published_at"),
	}
}
