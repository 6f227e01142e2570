// Package quota keeps the daily external-call budget in Redis so that all
// runs of one day draw from the same counter.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
	"fintrade/internal/platform/cache"
)

// acquireScript increments the day counter unless it already reached the
// ceiling. The key expires at the end of the day.
var acquireScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used >= tonumber(ARGV[1]) then
	return 0
end
used = redis.call("INCR", KEYS[1])
if used == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

// RedisQuota is a usecase.Quota shared across processes through Redis.
type RedisQuota struct {
	rdb     *redis.Client
	ceiling int
	loc     *time.Location
	now     func() time.Time
}

var _ usecase.Quota = (*RedisQuota)(nil)

// NewRedisQuota creates a daily budget of ceiling calls. Days roll over at
// midnight in loc.
func NewRedisQuota(rdb *redis.Client, ceiling int, loc *time.Location) *RedisQuota {
	if loc == nil {
		loc = time.UTC
	}
	return &RedisQuota{rdb: rdb, ceiling: ceiling, loc: loc, now: time.Now}
}

// Acquire takes one call from today's budget.
func (q *RedisQuota) Acquire(ctx context.Context) (bool, error) {
	if q.ceiling <= 0 {
		return false, nil
	}
	now := q.now()
	ttl := cache.TimeUntilMidnight(now, q.loc) + time.Hour
	n, err := acquireScript.Run(ctx, q.rdb, []string{q.key(now)}, q.ceiling, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("acquire quota: %w", err)
	}
	return n == 1, nil
}

// Used returns the calls consumed today.
func (q *RedisQuota) Used(ctx context.Context) (int, error) {
	n, err := q.rdb.Get(ctx, q.key(q.now())).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read quota: %w", err)
	}
	return n, nil
}

func (q *RedisQuota) key(now time.Time) string {
	return "quota:" + now.In(q.loc).Format(entity.DateLayout)
}
