package entity

import "time"

// Window is the half-open date range (After, Through] still needing processing.
type Window struct {
	After   time.Time `json:"after"`   // exclusive lower bound
	Through time.Time `json:"through"` // inclusive upper bound
}

// Empty reports whether the window contains no dates.
func (w Window) Empty() bool {
	return !w.Through.After(w.After)
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d time.Time) bool {
	d = Day(d)
	return d.After(w.After) && !d.After(w.Through)
}

// First returns the first date inside the window.
func (w Window) First() time.Time {
	return w.After.AddDate(0, 0, 1)
}

// Days returns the number of calendar days in the window.
func (w Window) Days() int {
	if w.Empty() {
		return 0
	}
	return int(w.Through.Sub(w.After).Hours() / 24)
}

func (w Window) String() string {
	if w.Empty() {
		return "(empty)"
	}
	return "[" + w.First().Format(DateLayout) + ", " + w.Through.Format(DateLayout) + "]"
}

// Between returns the window holding every date from first to last inclusive.
func Between(first, last time.Time) Window {
	return Window{After: Day(first).AddDate(0, 0, -1), Through: Day(last)}
}
