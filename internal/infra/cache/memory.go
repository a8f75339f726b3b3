package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"
)

// MemoryCache はプロセス内のカタログキャッシュ。TTLを過ぎたら無効。
type MemoryCache struct {
	mu       sync.RWMutex
	products []model.Product
	storedAt time.Time
	ttl      time.Duration
	clock    Clock
	stats    counters
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(ttl, systemClock{})
}

func NewMemoryCacheWithClock(ttl time.Duration, clock Clock) *MemoryCache {
	return &MemoryCache{ttl: ttl, clock: clock}
}

func (c *MemoryCache) Get(_ context.Context) ([]model.Product, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.products == nil || c.clock.Now().Sub(c.storedAt) >= c.ttl {
		c.stats.misses.Add(1)
		return nil, false, nil
	}
	c.stats.hits.Add(1)
	return slices.Clone(c.products), true, nil
}

func (c *MemoryCache) Set(_ context.Context, products []model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = slices.Clone(products)
	c.storedAt = c.clock.Now()
	c.stats.sets.Add(1)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = nil
	c.storedAt = time.Time{}
	c.stats.deletes.Add(1)
	return nil
}

func (c *MemoryCache) Stats() usecase.CacheStats {
	return c.stats.snapshot()
}
