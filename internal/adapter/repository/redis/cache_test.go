package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCacheSetAndGet(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "foo", []byte("bar"), time.Minute))

	val, err := cache.Get(ctx, "foo")
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), val)
}

func TestCacheGetMissing(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, nil)

	val, err := cache.Get(context.Background(), "absent")
	require.NoError(t, err, "a miss must not be an error")
	require.Nil(t, val)
}

func TestCacheDeleteByPrefix(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "performance:fund-1:100:2026-01-01", []byte(`{"stale":true}`), time.Minute))
	require.NoError(t, cache.Set(ctx, "performance:fund-1:200:2026-02-01", []byte(`{"stale":true}`), time.Minute))
	require.NoError(t, cache.Set(ctx, "performance:fund-2:100:2026-01-01", []byte(`{"keep":true}`), time.Minute))

	require.NoError(t, cache.DeleteByPrefix(ctx, "performance:fund-1:"))

	for _, key := range []string{"performance:fund-1:100:2026-01-01", "performance:fund-1:200:2026-02-01"} {
		val, err := cache.Get(ctx, key)
		require.NoError(t, err)
		require.Nil(t, val, "entry under deleted prefix must be gone")
	}

	val, err := cache.Get(ctx, "performance:fund-2:100:2026-01-01")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"keep":true}`), val, "other funds' entries must survive")
}

func TestCacheDeleteByPrefixNoMatches(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, nil)

	require.NoError(t, cache.DeleteByPrefix(context.Background(), "performance:absent:"))
}

func TestCacheDelete(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	cache := NewCache(client, nil)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "foo", []byte("bar"), time.Minute))
	require.NoError(t, cache.Delete(ctx, "foo"))

	val, err := cache.Get(ctx, "foo")
	require.NoError(t, err)
	require.Nil(t, val, "deleted key must read as a miss")
}
