package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/providers"
	redisclient "github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/clients/redis"
)

const testPrefix = "aisearch:"

func setupRedis(t *testing.T) (*miniredis.Miniredis, providers.CacheProvider) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, NewRedisAdapter(redisclient.NewClientFromRedis(rdb, testPrefix))
}

func TestRedisAdapter_GetSet(t *testing.T) {
	mr, cache := setupRedis(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, "search_analytics:aggregate:abc")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)

	require.NoError(t, cache.Set(ctx, "search_analytics:aggregate:abc", []byte(`{"days":7}`), 3600))
	got, err := cache.Get(ctx, "search_analytics:aggregate:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"days":7}`, string(got))
	assert.Equal(t, time.Hour, mr.TTL(testPrefix+"search_analytics:aggregate:abc"))
	assert.False(t, mr.Exists("search_analytics:aggregate:abc"))

	mr.FastForward(time.Hour + time.Second)
	_, err = cache.Get(ctx, "search_analytics:aggregate:abc")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_Delete(t *testing.T) {
	_, cache := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", []byte("v"), 60))
	require.NoError(t, cache.Delete(ctx, "k"))

	_, err := cache.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestRedisAdapter_DeletePattern(t *testing.T) {
	mr, cache := setupRedis(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, mr.Set(fmt.Sprintf("%ssearch_analytics:recent:%d", testPrefix, i), "x"))
	}
	require.NoError(t, mr.Set(testPrefix+"search_ctr:by_position:1", "keep"))
	require.NoError(t, mr.Set("search_analytics:recent:other-deployment", "keep"))

	require.NoError(t, cache.DeletePattern(ctx, "search_analytics:*"))

	assert.ElementsMatch(t, []string{testPrefix + "search_ctr:by_position:1", "search_analytics:recent:other-deployment"}, mr.Keys())
}

func TestRedisAdapter_ServerDown(t *testing.T) {
	mr, cache := setupRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrCacheMiss)
}
