package usecase

import (
	"context"
	"sync"
	"time"

	"fintrade/internal/feature/prices/domain/entity"
)

// MemoryQuota is a per-process call budget guarded by a single mutex.
// A daily quota refills when the calendar date changes in its location.
type MemoryQuota struct {
	mu       sync.Mutex
	ceiling  int
	consumed int
	loc      *time.Location // nil: the budget never refills
	now      func() time.Time
	day      string
}

var _ Quota = (*MemoryQuota)(nil)

// NewMemoryQuota returns a quota holding ceiling permits.
func NewMemoryQuota(ceiling int) *MemoryQuota {
	if ceiling < 0 {
		ceiling = 0
	}
	return &MemoryQuota{ceiling: ceiling}
}

// NewDailyMemoryQuota returns a quota of ceiling permits per calendar day.
// Days roll over at midnight in loc. A nil now uses time.Now.
func NewDailyMemoryQuota(ceiling int, loc *time.Location, now func() time.Time) *MemoryQuota {
	q := NewMemoryQuota(ceiling)
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	q.loc = loc
	q.now = now
	return q
}

// Acquire takes one permit. It returns false once the budget is spent.
func (q *MemoryQuota) Acquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	if q.consumed >= q.ceiling {
		return false, nil
	}
	q.consumed++
	return true, nil
}

// Remaining returns the permits left.
func (q *MemoryQuota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	return q.ceiling - q.consumed
}

// Consumed returns the permits handed out so far, today for a daily quota.
func (q *MemoryQuota) Consumed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.roll()
	return q.consumed
}

// roll resets the counter on a new day. q.mu must be held.
func (q *MemoryQuota) roll() {
	if q.loc == nil {
		return
	}
	day := q.now().In(q.loc).Format(entity.DateLayout)
	if day != q.day {
		q.day = day
		q.consumed = 0
	}
}
