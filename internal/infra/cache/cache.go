// Package cache は商品カタログのキャッシュ実装（インメモリ / Redis）。
package cache

import (
	"sync/atomic"
	"time"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"
)

type counters struct {
	hits, misses, sets, deletes, errors atomic.Uint64
}

func (c *counters) snapshot() usecase.CacheStats {
	return usecase.CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Errors:  c.errors.Load(),
	}
}

// テストで時間を進めるため
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

var (
	_ usecase.CatalogCache       = (*MemoryCache)(nil)
	_ usecase.CacheStatsReporter = (*MemoryCache)(nil)
	_ usecase.CatalogCache       = (*RedisCache)(nil)
	_ usecase.CacheStatsReporter = (*RedisCache)(nil)
)
