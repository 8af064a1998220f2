package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	redisclient "github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/redis"
)

const scanBatchSize = 100

// RedisAdapter is the CacheProvider backed by Redis. Keys are namespaced
// with the client's prefix so several deployments can share one database.
type RedisAdapter struct {
	client *redisclient.Client
}

func NewRedisAdapter(client *redisclient.Client) providers.CacheProvider {
	return &RedisAdapter{client: client}
}

// Get returns providers.ErrCacheMiss for absent or expired keys.
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := a.client.Client().Get(ctx, a.client.Key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, providers.ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return val, nil
}

func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	ttl := time.Duration(expirationSeconds) * time.Second
	if err := a.client.Client().Set(ctx, a.client.Key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, a.client.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// DeletePattern removes every key matching the glob pattern, walking the
// keyspace with SCAN rather than KEYS.
func (a *RedisAdapter) DeletePattern(ctx context.Context, pattern string) error {
	rdb := a.client.Client()
	match := a.client.Key(pattern)
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan %q: %w", match, err)
		}
		if len(keys) > 0 {
			if err := rdb.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis unlink %d keys: %w", len(keys), err)
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}
