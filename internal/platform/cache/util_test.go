package cache

import (
	"testing"
	"time"
)

func TestTimeUntilMidnight(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load Asia/Tokyo timezone: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Duration
	}{
		{name: "utc evening", now: time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC), loc: time.UTC, want: 6 * time.Hour},
		{name: "exactly midnight", now: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), loc: time.UTC, want: 24 * time.Hour},
		{name: "nil location is utc", now: time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC), want: 30 * time.Minute},
		{name: "other zone", now: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), loc: tokyo, want: 3 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TimeUntilMidnight(tt.now, tt.loc); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTimeUntilMidnight_AlwaysPositive(t *testing.T) {
	t.Parallel()

	for i := 0; i < 10; i++ {
		d := TimeUntilMidnight(time.Now(), time.Local)
		if d <= 0 || d > 25*time.Hour {
			t.Errorf("iteration %d: unexpected duration %v", i, d)
		}
	}
}
