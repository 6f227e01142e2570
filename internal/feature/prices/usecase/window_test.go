package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrade/internal/feature/prices/domain/entity"
)

func TestComputeWindow(t *testing.T) {
	floor := date(2024, 1, 1)

	tests := []struct {
		name      string
		watermark time.Time
		ok        bool
		today     time.Time
		want      string
		days      int
	}{
		{name: "no watermark includes floor", today: date(2024, 1, 5), want: "[2024-01-01, 2024-01-05]", days: 5},
		{name: "watermark today is empty", watermark: date(2024, 1, 5), ok: true, today: date(2024, 1, 5), want: "(empty)"},
		{name: "watermark yesterday", watermark: date(2024, 1, 5), ok: true, today: date(2024, 1, 6), want: "[2024-01-06, 2024-01-06]", days: 1},
		{name: "watermark before floor is clamped", watermark: date(2023, 6, 1), ok: true, today: date(2024, 1, 3), want: "[2024-01-02, 2024-01-03]", days: 2},
		{name: "watermark after today is empty", watermark: date(2024, 2, 1), ok: true, today: date(2024, 1, 6), want: "(empty)"},
		{name: "time of day is ignored", today: time.Date(2024, 1, 2, 23, 59, 0, 0, time.UTC), want: "[2024-01-01, 2024-01-02]", days: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ComputeWindow(tt.watermark, tt.ok, floor, tt.today)
			assert.Equal(t, tt.want, w.String())
			assert.Equal(t, tt.days, w.Days())
		})
	}
}

func TestWatermarkTracker(t *testing.T) {
	store := newFakeWatermarks()
	tracker := NewWatermarkTracker(store, date(2024, 1, 1))
	ctx := context.Background()

	w, current, err := tracker.Window(ctx, "AAPL", date(2024, 1, 3))
	require.NoError(t, err)
	assert.Nil(t, current)
	assert.Equal(t, 3, w.Days())

	require.NoError(t, tracker.Advance(ctx, "AAPL", time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)))
	require.NoError(t, tracker.Advance(ctx, "AAPL", date(2024, 1, 2)))

	wm, ok, err := tracker.Get(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, date(2024, 1, 3), wm, "watermark never moves backwards")

	w, current, err = tracker.Window(ctx, "AAPL", date(2024, 1, 3))
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.True(t, w.Empty())

	store.GetErr = ErrDB
	_, _, err = tracker.Window(ctx, "AAPL", date(2024, 1, 4))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, ErrDB)

	store.AdvanceErr = ErrDB
	assert.ErrorIs(t, tracker.Advance(ctx, "AAPL", date(2024, 1, 4)), ErrStoreUnavailable)
}

func TestCovers(t *testing.T) {
	want := entity.Window{After: date(2024, 1, 1), Through: date(2024, 1, 10)}

	tests := []struct {
		name     string
		archived []entity.Window
		want     bool
	}{
		{name: "nothing archived", want: false},
		{name: "exact", archived: []entity.Window{want}, want: true},
		{name: "superset", archived: []entity.Window{{After: date(2023, 12, 1), Through: date(2024, 1, 31)}}, want: true},
		{name: "adjacent pieces", archived: []entity.Window{
			{After: date(2024, 1, 5), Through: date(2024, 1, 10)},
			{After: date(2024, 1, 1), Through: date(2024, 1, 5)},
		}, want: true},
		{name: "gap", archived: []entity.Window{
			{After: date(2024, 1, 1), Through: date(2024, 1, 4)},
			{After: date(2024, 1, 5), Through: date(2024, 1, 10)},
		}, want: false},
		{name: "tail missing", archived: []entity.Window{{After: date(2024, 1, 1), Through: date(2024, 1, 9)}}, want: false},
		{name: "head missing", archived: []entity.Window{{After: date(2024, 1, 2), Through: date(2024, 1, 10)}}, want: false},
		{name: "empty windows ignored", archived: []entity.Window{{After: date(2024, 1, 3), Through: date(2024, 1, 3)}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Covers(tt.archived, want))
		})
	}

	assert.True(t, Covers(nil, entity.Window{After: date(2024, 1, 1), Through: date(2024, 1, 1)}), "empty window is always covered")
}
