package quota

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRedisQuota_Ceiling(t *testing.T) {
	mr, rdb := setupRedis(t)
	q := NewRedisQuota(rdb, 3, time.UTC)
	q.now = fixedClock(time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := q.Acquire(ctx)
		require.NoError(t, err)
		assert.True(t, ok, "call %d within budget", i+1)
	}
	ok, err := q.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	used, err := q.Used(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, used)

	v, err := mr.Get("quota:2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
	assert.Equal(t, 7*time.Hour, mr.TTL("quota:2024-01-05"))
}

func TestRedisQuota_SharedAcrossInstances(t *testing.T) {
	_, rdb := setupRedis(t)
	clock := fixedClock(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))
	a := NewRedisQuota(rdb, 10, time.UTC)
	b := NewRedisQuota(rdb, 10, time.UTC)
	a.now, b.now = clock, clock

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		q := a
		if i%2 == 1 {
			q = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := q.Acquire(context.Background())
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), granted.Load())
}

func TestRedisQuota_NewDayResets(t *testing.T) {
	_, rdb := setupRedis(t)
	q := NewRedisQuota(rdb, 1, time.UTC)
	ctx := context.Background()

	q.now = fixedClock(time.Date(2024, 1, 5, 23, 0, 0, 0, time.UTC))
	ok, err := q.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = q.Acquire(ctx)
	assert.False(t, ok)

	q.now = fixedClock(time.Date(2024, 1, 6, 0, 30, 0, 0, time.UTC))
	ok, err = q.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisQuota_ZeroCeiling(t *testing.T) {
	_, rdb := setupRedis(t)
	ok, err := NewRedisQuota(rdb, 0, nil).Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisQuota_Unavailable(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	_, err := NewRedisQuota(rdb, 5, time.UTC).Acquire(context.Background())
	assert.Error(t, err)
}
