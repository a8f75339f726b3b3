package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"

	"github.com/redis/go-redis/v9"
)

const catalogKey = "catalog:products"

// RedisCache は複数プロセスで共有するカタログキャッシュ。
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  counters
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key() string {
	return c.prefix + catalogKey
}

func (c *RedisCache) Get(ctx context.Context) ([]model.Product, bool, error) {
	data, err := c.client.Get(ctx, c.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.stats.misses.Add(1)
			return nil, false, nil
		}
		c.stats.errors.Add(1)
		return nil, false, fmt.Errorf("cache get error: %w", err)
	}

	var products []model.Product
	if err := json.Unmarshal(data, &products); err != nil {
		c.stats.errors.Add(1)
		return nil, false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	c.stats.hits.Add(1)
	return products, true, nil
}

func (c *RedisCache) Set(ctx context.Context, products []model.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.key(), data, c.ttl).Err(); err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache set error: %w", err)
	}

	c.stats.sets.Add(1)
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key()).Err(); err != nil {
		c.stats.errors.Add(1)
		return fmt.Errorf("cache delete error: %w", err)
	}
	c.stats.deletes.Add(1)
	return nil
}

func (c *RedisCache) Stats() usecase.CacheStats {
	return c.stats.snapshot()
}

// Ping checks if the Redis connection is healthy.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
