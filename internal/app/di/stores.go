package di

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	pricesadapters "fintrade/internal/feature/prices/adapters"
	"fintrade/internal/feature/prices/adapters/quota"
	"fintrade/internal/feature/prices/usecase"
	"fintrade/internal/platform/cache"
	"fintrade/internal/platform/config"
)

// NewWatermarkStore creates a WatermarkStore implementation.
// If Redis is available, reads go through a Redis cache.
// Otherwise, the database store is used directly.
func NewWatermarkStore(rdb *redis.Client, db *gorm.DB, ttl time.Duration) usecase.WatermarkStore {
	store := pricesadapters.NewWatermarkStore(db)
	if rdb != nil {
		return cache.NewCachingWatermarkStore(rdb, ttl, store, "watermarks")
	}
	return store
}

// NewLoader selects the warehouse loader. The pgx loader needs pool.
func NewLoader(kind string, db *gorm.DB, pool *pgxpool.Pool) (usecase.Loader, error) {
	switch kind {
	case config.LoaderPgx:
		if pool == nil {
			return nil, fmt.Errorf("pgx loader requires a connection pool")
		}
		return pricesadapters.NewPricePgxLoader(pool), nil
	case config.LoaderGorm, "":
		return pricesadapters.NewPriceLoader(db), nil
	default:
		return nil, fmt.Errorf("unknown loader %q", kind)
	}
}

// NewQuota returns the daily call budget. The memory backend counts per
// process; the redis backend shares one counter across processes. Both
// refill at midnight in loc.
func NewQuota(cfg config.Pipeline, rdb *redis.Client, loc *time.Location) (usecase.Quota, error) {
	switch cfg.QuotaBackend {
	case config.QuotaRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis quota requires a redis connection")
		}
		return quota.NewRedisQuota(rdb, cfg.DailyQuota, loc), nil
	case config.QuotaMemory, "":
		return usecase.NewDailyMemoryQuota(cfg.DailyQuota, loc, time.Now), nil
	default:
		return nil, fmt.Errorf("unknown quota backend %q", cfg.QuotaBackend)
	}
}

// PingRedis adapts a Redis client to a health check.
func PingRedis(rdb *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
}
