package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/ivanmandinski/aisearch-sub002/pkg/config"
	"github.com/ivanmandinski/aisearch-sub002/pkg/retry"
)

// Client owns the analytics connection pool and the query builders bound to it.
type Client struct {
	db   *sql.DB
	qb   *goqu.Database
	dbx  *sqlx.DB
	host string
}

// NewClient opens the pool, applies the configured limits and waits for the
// database to answer, retrying with exponential backoff.
func NewClient(cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	err = retry.DoWithLog(
		context.Background(),
		retry.DefaultConfig(),
		"PostgreSQL",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("PostgreSQL connection attempt failed")
		},
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Connected to PostgreSQL")

	client := NewClientFromDB(db)
	client.host = cfg.Host
	return client, nil
}

// NewClientFromDB wraps an existing pool, e.g. a sqlmock connection in tests.
func NewClientFromDB(db *sql.DB) *Client {
	return &Client{
		db:  db,
		qb:  goqu.New("postgres", db),
		dbx: sqlx.NewDb(db, "postgres"),
	}
}

// DB returns the underlying pool.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Goqu returns the postgres-dialect query builder.
func (c *Client) Goqu() *goqu.Database {
	return c.qb
}

// Sqlx returns the pool wrapped for scanning rows into db-tagged structs.
func (c *Client) Sqlx() *sqlx.DB {
	return c.dbx
}

// Close closes the pool.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the database answers within ctx.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres %s unreachable: %w", c.host, err)
	}
	return nil
}
