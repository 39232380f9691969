package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedFeed struct {
	IDs []uint `json:"ids"`
}

func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	var got cachedFeed
	assert.False(t, c.Get(ctx, "feed", &got))

	c.Set(ctx, "feed", cachedFeed{IDs: []uint{3, 2, 1}}, time.Minute)
	require.True(t, c.Get(ctx, "feed", &got))
	assert.Equal(t, []uint{3, 2, 1}, got.IDs)

	c.Delete(ctx, "feed")
	assert.False(t, c.Get(ctx, "feed", &got))
}

func TestLRUCache(t *testing.T) {
	c, err := NewLRUCache(10)
	require.NoError(t, err)
	exerciseCache(t, c)
}

func TestLRUCacheExpiry(t *testing.T) {
	c, err := NewLRUCache(10)
	require.NoError(t, err)

	c.Set(context.Background(), "k", 1, -time.Second)
	var v int
	assert.False(t, c.Get(context.Background(), "k", &v))
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseCache(t, NewRedisCache(client))
}

func TestRedisCacheTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := NewRedisCache(client)

	c.Set(context.Background(), "k", 1, time.Minute)
	mr.FastForward(2 * time.Minute)

	var v int
	assert.False(t, c.Get(context.Background(), "k", &v))
}

func TestNewCacheSelectsBackend(t *testing.T) {
	c, err := NewCache(context.Background(), "")
	require.NoError(t, err)
	assert.IsType(t, &LRUCache{}, c)

	mr := miniredis.RunT(t)
	c, err = NewCache(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, c)
}
