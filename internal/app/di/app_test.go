package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrade/internal/feature/prices/adapters/quota"
	"fintrade/internal/feature/prices/usecase"
	"fintrade/internal/platform/cache"
	"fintrade/internal/platform/config"
	infradb "fintrade/internal/platform/db"
	infraredis "fintrade/internal/platform/redis"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DB = infradb.Config{Driver: infradb.DriverSQLite, Path: filepath.Join(t.TempDir(), "w.db"), AutoMigrate: true}
	cfg.S3.Endpoint = "http://127.0.0.1:1"
	cfg.S3.PathStyle = true
	cfg.S3.CreateBucket = false
	cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey = "test", "test"
	cfg.AlphaVantage.APIKey = "key"
	return cfg
}

func TestNew_WithoutRedis(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.Redis)
	require.NoError(t, app.BuildPipeline(context.Background()))
	require.NotNil(t, app.Runner)

	// empty catalog and no configured symbols
	_, err = app.Runner.Trigger(context.Background())
	assert.ErrorIs(t, err, usecase.ErrNoEntities)

	_, ok, err := app.Runner.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNew_UnreachableRedisIsOptional(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis = infraredis.Config{Addr: addr}

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()
	assert.Nil(t, app.Redis)
}

func TestNew_UnreachableRedisRequiredForQuota(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis = infraredis.Config{Addr: addr}
	cfg.Pipeline.QuotaBackend = config.QuotaRedis

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewWatermarkStore(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	store := NewWatermarkStore(nil, app.DB, time.Hour)
	_, isCache := store.(*cache.CachingWatermarkStore)
	assert.False(t, isCache)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store = NewWatermarkStore(rdb, app.DB, time.Hour)
	require.IsType(t, &cache.CachingWatermarkStore{}, store)

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Advance(context.Background(), "AAPL", day))
	got, ok, err := store.Get(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, got.Equal(day))
}

func TestNewLoader(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer app.Close()

	l, err := NewLoader(config.LoaderGorm, app.DB, nil)
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLoader(config.LoaderPgx, app.DB, nil)
	assert.Error(t, err, "pgx loader needs a pool")

	_, err = NewLoader("csv", app.DB, nil)
	assert.Error(t, err)
}

func TestNewQuota(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.DailyQuota = 2

	q, err := NewQuota(cfg, nil, time.UTC)
	require.NoError(t, err)
	assert.IsType(t, &usecase.MemoryQuota{}, q)
	for i := 0; i < 2; i++ {
		ok, err := q.Acquire(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := q.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "one budget per day for every run of the process")

	cfg.QuotaBackend = config.QuotaRedis
	_, err = NewQuota(cfg, nil, time.UTC)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	q, err = NewQuota(cfg, rdb, time.UTC)
	require.NoError(t, err)
	assert.IsType(t, &quota.RedisQuota{}, q)

	cfg.QuotaBackend = "etcd"
	_, err = NewQuota(cfg, nil, time.UTC)
	assert.Error(t, err)
}
