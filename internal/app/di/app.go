package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	instrumentadapters "fintrade/internal/feature/instruments/adapters"
	instrumentusecase "fintrade/internal/feature/instruments/usecase"
	pricesadapters "fintrade/internal/feature/prices/adapters"
	"fintrade/internal/feature/prices/adapters/alphavantage"
	"fintrade/internal/feature/prices/adapters/archive"
	"fintrade/internal/feature/prices/usecase"
	"fintrade/internal/platform/config"
	infradb "fintrade/internal/platform/db"
	"fintrade/internal/platform/objectstore"
	infraredis "fintrade/internal/platform/redis"
	"fintrade/internal/shared/ratelimiter"
)

// App holds the long lived connections and the components built on them.
type App struct {
	Config      config.Config
	DB          *gorm.DB
	Redis       *redis.Client // nil when not configured or unreachable
	Pool        *pgxpool.Pool // nil unless the pgx loader is selected
	Instruments *instrumentusecase.InstrumentUsecase
	Runner      *usecase.Runner // nil until BuildPipeline
}

// New opens the warehouse and, when configured, Redis.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := infradb.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	a := &App{Config: cfg, DB: db}

	if cfg.Redis.Enabled() {
		rdb, err := infraredis.NewRedisClient(ctx, cfg.Redis)
		switch {
		case err == nil:
			a.Redis = rdb
		case cfg.Pipeline.QuotaBackend == config.QuotaRedis:
			a.Close()
			return nil, fmt.Errorf("redis is required for the shared quota: %w", err)
		default:
			slog.Warn("Redis unavailable. Running without cache.", "error", err)
		}
	}

	a.Instruments = instrumentusecase.NewInstrumentUsecase(instrumentadapters.NewInstrumentRepository(db))
	return a, nil
}

// BuildPipeline wires fetcher, archive, loader, watermarks and quota into a Runner.
func (a *App) BuildPipeline(ctx context.Context) error {
	cfg := a.Config
	loc, err := cfg.Pipeline.Location()
	if err != nil {
		return err
	}

	s3Client, err := objectstore.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return err
	}
	arch := archive.NewS3Archive(s3Client, cfg.S3.Bucket, cfg.S3.Region, alphavantage.Decode)
	if cfg.S3.CreateBucket {
		if err := arch.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure archive bucket: %w", err)
		}
	}

	if cfg.Pipeline.Loader == config.LoaderPgx && a.Pool == nil {
		pool, err := infradb.OpenPool(ctx, cfg.DB, int32(cfg.Pipeline.Concurrency)+1)
		if err != nil {
			return err
		}
		a.Pool = pool
	}
	loader, err := NewLoader(cfg.Pipeline.Loader, a.DB, a.Pool)
	if err != nil {
		return err
	}

	quota, err := NewQuota(cfg.Pipeline, a.Redis, loc)
	if err != nil {
		return err
	}

	coordinator := usecase.NewCoordinator(
		usecase.Config{
			Concurrency:  cfg.Pipeline.Concurrency,
			HistoryFloor: cfg.Pipeline.Floor(time.Now().In(loc)),
			Location:     loc,
		},
		NewFetcher(cfg.AlphaVantage),
		arch,
		loader,
		NewWatermarkStore(a.Redis, a.DB, cfg.Pipeline.WatermarkCacheTTL),
		quota,
		usecase.NewBackoff(cfg.Pipeline.MaxAttempts, cfg.Pipeline.BaseDelay, cfg.Pipeline.MaxDelay),
		usecase.WithPacer(ratelimiter.NewRateLimiter(cfg.Pipeline.CallsPerMinute, time.Minute)),
	)

	a.Runner = usecase.NewRunner(
		coordinator,
		cfg.Pipeline.Symbols,
		a.Instruments,
		pricesadapters.NewOutcomeRecorder(a.DB),
		cfg.Pipeline.RunTimeout,
	)
	return nil
}

// Close releases every connection the App opened.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			slog.Error("Failed to close Redis client", "error", err)
		}
	}
	if a.DB != nil {
		if err := infradb.Close(a.DB); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}
}
