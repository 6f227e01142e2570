package usecase

import (
	"sort"

	"fintrade/internal/feature/prices/domain/entity"
)

// Covers reports whether the union of archived windows covers want entirely.
// Windows that touch (one ends the day before the next begins) are merged.
// A window covered only in part counts as not covered.
func Covers(archived []entity.Window, want entity.Window) bool {
	if want.Empty() {
		return true
	}
	ws := make([]entity.Window, 0, len(archived))
	for _, w := range archived {
		if !w.Empty() {
			ws = append(ws, w)
		}
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].After.Before(ws[j].After) })

	// reach is the last date known to be covered, starting at want.After.
	reach := want.After
	for _, w := range ws {
		if w.After.After(reach) {
			break
		}
		if w.Through.After(reach) {
			reach = w.Through
		}
		if !reach.Before(want.Through) {
			return true
		}
	}
	return !reach.Before(want.Through)
}
