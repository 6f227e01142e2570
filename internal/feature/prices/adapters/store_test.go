package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would get its own in-memory database
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&PriceModel{}, &WatermarkModel{}, &RunOutcomeModel{})
	require.NoError(t, err, "failed to migrate tables")

	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func obs(symbol string, d time.Time, volume int64) entity.Observation {
	return entity.Observation{Symbol: symbol, Date: d, Open: 100, High: 110, Low: 90, Close: 105, Volume: volume}
}

type volumeTotal struct {
	N     int64
	Total int64
}

func totals(t *testing.T, db *gorm.DB) volumeTotal {
	t.Helper()
	var v volumeTotal
	err := db.Model(&PriceModel{}).Select("count(*) AS n, coalesce(sum(volume), 0) AS total").Scan(&v).Error
	require.NoError(t, err)
	return v
}

func TestPriceLoader_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	loader := NewPriceLoader(db)
	ctx := context.Background()

	batch := []entity.Observation{
		obs("AAPL", day(2024, 1, 2), 100),
		obs("AAPL", day(2024, 1, 3), 200),
		obs("AAPL", day(2024, 1, 4), 300),
	}

	res, err := loader.Load(ctx, "AAPL", batch)
	require.NoError(t, err)
	assert.Equal(t, entity.LoadResult{Inserted: 3, Skipped: 0}, res)
	first := totals(t, db)

	res, err = loader.Load(ctx, "AAPL", batch)
	require.NoError(t, err)
	assert.Equal(t, entity.LoadResult{Inserted: 0, Skipped: 3}, res)
	assert.Equal(t, first, totals(t, db), "second load must not change the table")
	assert.Equal(t, volumeTotal{N: 3, Total: 600}, first)
}

func TestPriceLoader_ExistingRowsAreNotUpdated(t *testing.T) {
	db := setupTestDB(t)
	loader := NewPriceLoader(db)
	ctx := context.Background()

	_, err := loader.Load(ctx, "AAPL", []entity.Observation{obs("AAPL", day(2024, 1, 2), 100)})
	require.NoError(t, err)

	res, err := loader.Load(ctx, "AAPL", []entity.Observation{
		obs("AAPL", day(2024, 1, 2), 999),
		obs("AAPL", day(2024, 1, 3), 50),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.LoadResult{Inserted: 1, Skipped: 1}, res)
	assert.Equal(t, volumeTotal{N: 2, Total: 150}, totals(t, db))
}

func TestPriceLoader_SkipsInvalidAndDuplicates(t *testing.T) {
	db := setupTestDB(t)
	loader := NewPriceLoader(db)

	bad := obs("AAPL", day(2024, 1, 4), 10)
	bad.High = 80

	res, err := loader.Load(context.Background(), "AAPL", []entity.Observation{
		obs("AAPL", day(2024, 1, 2), 100),
		obs("AAPL", day(2024, 1, 2), 100),
		obs("AAPL", day(2024, 1, 3), -5),
		bad,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.LoadResult{Inserted: 1, Skipped: 3}, res)
}

func TestPriceLoader_EmptyBatch(t *testing.T) {
	res, err := NewPriceLoader(setupTestDB(t)).Load(context.Background(), "AAPL", nil)
	require.NoError(t, err)
	assert.Equal(t, entity.LoadResult{}, res)
}

func TestPriceLoader_StoreUnavailable(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = NewPriceLoader(db).Load(context.Background(), "AAPL", []entity.Observation{obs("AAPL", day(2024, 1, 2), 1)})
	assert.ErrorIs(t, err, usecase.ErrStoreUnavailable)
}

func TestPriceLoader_Find(t *testing.T) {
	db := setupTestDB(t)
	loader := NewPriceLoader(db)
	ctx := context.Background()

	_, err := loader.Load(ctx, "AAPL", []entity.Observation{
		obs("AAPL", day(2024, 1, 4), 3),
		obs("AAPL", day(2024, 1, 2), 1),
		obs("AAPL", day(2024, 1, 3), 2),
	})
	require.NoError(t, err)
	_, err = loader.Load(ctx, "MSFT", []entity.Observation{obs("MSFT", day(2024, 1, 3), 7)})
	require.NoError(t, err)

	got, err := loader.Find(ctx, "AAPL", entity.Window{After: day(2024, 1, 2), Through: day(2024, 1, 4)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(2024, 1, 3), got[0].Date)
	assert.Equal(t, int64(3), got[1].Volume)
}

func TestWatermarkStore_Monotonic(t *testing.T) {
	db := setupTestDB(t)
	store := NewWatermarkStore(db)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Advance(ctx, "AAPL", day(2024, 1, 5)))
	require.NoError(t, store.Advance(ctx, "AAPL", day(2024, 1, 3)))

	got, ok, err := store.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day(2024, 1, 5), got)

	require.NoError(t, store.Advance(ctx, "AAPL", day(2024, 1, 8)))
	got, _, err = store.Get(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 8), got)

	_, ok, err = store.Get(ctx, "MSFT")
	require.NoError(t, err)
	assert.False(t, ok, "watermarks are per symbol")
}

func TestOutcomeRecorder_RecordAndLatest(t *testing.T) {
	db := setupTestDB(t)
	rec := NewOutcomeRecorder(db)
	ctx := context.Background()

	_, ok, err := rec.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	older := entity.RunOutcome{
		RunID:      "run-1",
		StartedAt:  time.Date(2024, 1, 4, 18, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 4, 18, 1, 0, 0, time.UTC),
		Status:     entity.StatusSuccess,
	}
	newer := entity.RunOutcome{
		RunID:      "run-2",
		StartedAt:  time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 1, 5, 18, 2, 0, 0, time.UTC),
		Status:     entity.StatusPartial,
		Inserted:   5,
		Entities: []entity.EntityOutcome{{
			Symbol:   "AAPL",
			Status:   entity.StatusSuccess,
			Partial:  true,
			Inserted: 5,
			Delays:   []time.Duration{4 * time.Second},
			Path:     []entity.State{entity.StateIdle, entity.StateDone},
		}},
	}
	require.NoError(t, rec.Record(ctx, newer))
	require.NoError(t, rec.Record(ctx, older))

	got, ok, err := rec.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, entity.StatusPartial, got.Status)
	require.Len(t, got.Entities, 1)
	assert.Equal(t, newer.Entities[0], got.Entities[0])

	assert.Error(t, rec.Record(ctx, newer), "run ids are unique")
}
