package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goodlist/internal/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores JSON-encoded read models. A miss or decode failure is reported
// as false; callers then fall back to the database.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// CacheItem is an encoded value with its expiry.
type CacheItem struct {
	Data      []byte
	ExpiresAt time.Time
}

// LRUCache is the in-process cache used when no Redis is configured.
type LRUCache struct {
	lruCache *lru.Cache[string, CacheItem]
}

func NewLRUCache(size int) (*LRUCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{lruCache: l}, nil
}

func (c *LRUCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

func (c *LRUCache) Get(_ context.Context, key string, dst interface{}) bool {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return false
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return false
	}

	return json.Unmarshal(val.Data, dst) == nil
}

func (c *LRUCache) Delete(_ context.Context, key string) {
	c.lruCache.Remove(key)
}

// RedisCache shares cached read models between server instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logger.Warn("redis delete failed", zap.String("key", key), zap.Error(err))
	}
}

// NewCache returns a Redis-backed cache when redisURL is set, otherwise an LRU
// holding 500 entries.
func NewCache(ctx context.Context, redisURL string) (Cache, error) {
	if redisURL == "" {
		c, err := NewLRUCache(500)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCache(client), nil
}
