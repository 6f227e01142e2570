package usecase

import (
	"context"
	"fmt"
	"time"

	"fintrade/internal/feature/prices/domain/entity"
)

// ComputeWindow returns the incremental window for a symbol. With a watermark W
// the window is (max(W, floor), today]; without one the floor date itself is
// included.
func ComputeWindow(watermark time.Time, ok bool, floor, today time.Time) entity.Window {
	floor = entity.Day(floor)
	lower := floor.AddDate(0, 0, -1)
	if ok {
		lower = entity.Day(watermark)
		if lower.Before(floor) {
			lower = floor
		}
	}
	return entity.Window{After: lower, Through: entity.Day(today)}
}

// WatermarkTracker reads and advances per-symbol watermarks.
type WatermarkTracker struct {
	store WatermarkStore
	floor time.Time
}

// NewWatermarkTracker creates a tracker over store with the given history floor.
func NewWatermarkTracker(store WatermarkStore, floor time.Time) *WatermarkTracker {
	return &WatermarkTracker{store: store, floor: entity.Day(floor)}
}

// Get returns the current watermark of symbol.
func (t *WatermarkTracker) Get(ctx context.Context, symbol string) (time.Time, bool, error) {
	wm, ok, err := t.store.Get(ctx, symbol)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get watermark %s: %w: %w", symbol, ErrStoreUnavailable, err)
	}
	return wm, ok, nil
}

// Window computes the fetch window of symbol as of today.
func (t *WatermarkTracker) Window(ctx context.Context, symbol string, today time.Time) (entity.Window, *time.Time, error) {
	wm, ok, err := t.Get(ctx, symbol)
	if err != nil {
		return entity.Window{}, nil, err
	}
	var current *time.Time
	if ok {
		current = &wm
	}
	return ComputeWindow(wm, ok, t.floor, today), current, nil
}

// Reaches reports whether every date up to and including after is already
// loaded for a symbol with watermark wm. Dates before the floor count as loaded.
func (t *WatermarkTracker) Reaches(wm time.Time, ok bool, after time.Time) bool {
	loaded := t.floor.AddDate(0, 0, -1)
	if ok && entity.Day(wm).After(loaded) {
		loaded = entity.Day(wm)
	}
	return !entity.Day(after).After(loaded)
}

// Advance moves the watermark of symbol forward to date. Earlier dates are ignored.
func (t *WatermarkTracker) Advance(ctx context.Context, symbol string, date time.Time) error {
	if err := t.store.Advance(ctx, symbol, entity.Day(date)); err != nil {
		return fmt.Errorf("advance watermark %s: %w: %w", symbol, ErrStoreUnavailable, err)
	}
	return nil
}
