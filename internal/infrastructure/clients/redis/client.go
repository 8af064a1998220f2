package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/ivanmandinski/aisearch-sub002/pkg/config"
	"github.com/ivanmandinski/aisearch-sub002/pkg/retry"
)

const connectAttempts = 3

// Client wraps a go-redis client together with the key namespace every
// cache entry written through it lives under.
type Client struct {
	rdb       *redis.Client
	addr      string
	keyPrefix string
}

// NewClient dials Redis with the configured pool and waits for PING.
// Startup is retried a few times so the API can come up alongside Redis.
func NewClient(cfg *config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	c := &Client{rdb: rdb, addr: cfg.RedisAddr(), keyPrefix: cfg.KeyPrefix}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = connectAttempts
	err := retry.DoWithLog(context.Background(), retryCfg, "redis", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout+time.Second)
		defer cancel()
		return c.Ping(ctx)
	}, func(attempt int, err error, nextDelay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Redis not reachable yet")
	})
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	log.Info().Str("addr", c.addr).Int("pool_size", cfg.PoolSize).Str("key_prefix", c.keyPrefix).Msg("Connected to Redis")
	return c, nil
}

// NewClientFromRedis wraps an existing go-redis client, used by tests
// against miniredis.
func NewClientFromRedis(rdb *redis.Client, keyPrefix string) *Client {
	return &Client{rdb: rdb, addr: rdb.Options().Addr, keyPrefix: keyPrefix}
}

// Client returns the underlying go-redis client.
func (c *Client) Client() *redis.Client {
	return c.rdb
}

// Key prefixes key with the client's namespace.
func (c *Client) Key(key string) string {
	return c.keyPrefix + key
}

// KeyPrefix returns the namespace prepended by Key.
func (c *Client) KeyPrefix() string {
	return c.keyPrefix
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks Redis answers, naming the address on failure.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis at %s: %w", c.addr, err)
	}
	return nil
}
