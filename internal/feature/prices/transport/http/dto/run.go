package dto

// ReplayRequest asks for an archived window to be loaded again.
// From and To are inclusive dates in YYYY-MM-DD form.
type ReplayRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
}

// RunAccepted is returned when a run was started in the background.
type RunAccepted struct {
	Status string `json:"status"`
}
