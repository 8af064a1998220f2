package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
)

const (
	analyticsCachePrefix = "search_analytics"
	ctrCachePrefix       = "search_ctr"
)

// analyticsCacheKey builds "<prefix>:<op>:<digest>" where digest is derived
// from the JSON encoding of args, so equal arguments always share a key.
func analyticsCacheKey(prefix, op string, args interface{}) string {
	raw, _ := json.Marshal(args)
	sum := sha256.Sum256(raw)
	return prefix + ":" + op + ":" + hex.EncodeToString(sum[:8])
}

// cachedQuery serves load through cache. Cache failures of any kind are
// treated as a miss, and results are only written back after a successful load.
func cachedQuery[T any](
	ctx context.Context,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
	prefix, key string,
	ttl time.Duration,
	load func(context.Context) (T, error),
) (T, error) {
	if cache == nil {
		return load(ctx)
	}

	log := observability.LoggerFromContext(ctx)
	if data, err := cache.Get(ctx, key); err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.RecordCacheHit(ctx, metrics, prefix)
			return cached, nil
		}
		log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		log.Debug().Err(err).Str("key", key).Msg("cache read failed")
	}
	observability.RecordCacheMiss(ctx, metrics, prefix)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if data, err := json.Marshal(value); err == nil {
		if err := cache.Set(ctx, key, data, ttlSeconds(ttl)); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return value, nil
}

// ttlSeconds rounds ttl up to whole seconds. The result is at least one
// because cache backends treat zero as no expiry.
func ttlSeconds(ttl time.Duration) int {
	secs := int((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

// invalidatePrefix drops every cached entry under prefix.
func invalidatePrefix(ctx context.Context, cache providers.CacheProvider, prefix string) {
	if cache == nil {
		return
	}
	if err := cache.DeletePattern(ctx, prefix+":*"); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).
			Str("prefix", prefix).
			Msg("cache invalidation failed")
	}
}
