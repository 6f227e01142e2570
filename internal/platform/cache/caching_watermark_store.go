// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
)

// CachingWatermarkStore decorates a WatermarkStore with a Redis read-through
// cache. Advance writes to the inner store first and then drops the entry.
type CachingWatermarkStore struct {
	inner     usecase.WatermarkStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.WatermarkStore = (*CachingWatermarkStore)(nil)

// NewCachingWatermarkStore decorates inner with Redis caching.
// If ttl is 0, it defaults to 1 hour. If namespace is empty, it uses "watermarks".
func NewCachingWatermarkStore(rdb *redis.Client, ttl time.Duration, inner usecase.WatermarkStore, namespace string) *CachingWatermarkStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if namespace == "" {
		namespace = "watermarks"
	}
	return &CachingWatermarkStore{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Get returns the cached watermark, falling back to the inner store.
func (c *CachingWatermarkStore) Get(ctx context.Context, symbol string) (time.Time, bool, error) {
	if c.rdb == nil {
		return c.inner.Get(ctx, symbol)
	}

	key := c.cacheKey(symbol)
	if s, err := c.rdb.Get(ctx, key).Result(); err == nil && s != "" {
		if d, err := entity.ParseDay(s); err == nil {
			return d, true, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	d, ok, err := c.inner.Get(ctx, symbol)
	if err != nil || !ok {
		return d, ok, err
	}
	_ = c.rdb.Set(ctx, key, d.Format(entity.DateLayout), c.ttl).Err()
	return d, true, nil
}

// Advance moves the watermark in the inner store and invalidates the cache.
func (c *CachingWatermarkStore) Advance(ctx context.Context, symbol string, date time.Time) error {
	if err := c.inner.Advance(ctx, symbol, date); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	// Best effort: a stale entry can only make the next window start too early.
	_ = c.rdb.Del(ctx, c.cacheKey(symbol)).Err()
	return nil
}

func (c *CachingWatermarkStore) cacheKey(symbol string) string {
	return fmt.Sprintf("%s:%s", c.namespace, safe(symbol))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
