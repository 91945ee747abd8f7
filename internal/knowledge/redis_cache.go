package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const companyCacheKey = "knowledge:company"

// Cache fronts the persisted override record.
type Cache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, raw []byte) error
	Invalidate(ctx context.Context) error
}

// RedisCache stores the raw override record in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a cache. A nil client yields a nil cache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if client == nil {
		return nil
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, companyCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("knowledge: cache get: %w", err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, raw []byte) error {
	if err := c.client.Set(ctx, companyCacheKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("knowledge: cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, companyCacheKey).Err(); err != nil {
		return fmt.Errorf("knowledge: cache invalidate: %w", err)
	}
	return nil
}
