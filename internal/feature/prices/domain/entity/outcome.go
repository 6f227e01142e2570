package entity

import "time"

// Status is the terminal status of an entity or a whole run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// State is a step of the per-entity pipeline state machine.
type State string

const (
	StateIdle            State = "idle"
	StateWindowing       State = "windowing"
	StateFetching        State = "fetching"
	StateArchiveFallback State = "archive_fallback"
	StateArchiving       State = "archiving"
	StateLoading         State = "loading"
	StateAdvancing       State = "advancing"
	StateDone            State = "done"
)

// EntityOutcome records how one symbol went through a run.
type EntityOutcome struct {
	Symbol      string          `json:"symbol"`
	Status      Status          `json:"status"`
	Partial     bool            `json:"partial"` // loaded from the archive instead of the API
	Window      Window          `json:"window"`
	Attempts    int             `json:"attempts"`
	Delays      []time.Duration `json:"delays,omitempty"`
	Fetched     int             `json:"fetched"`
	Inserted    int             `json:"inserted"`
	Skipped     int             `json:"skipped"`
	Dropped     int             `json:"dropped"`
	Watermark   *time.Time      `json:"watermark,omitempty"`
	Path        []State         `json:"path"`
	Reason      string          `json:"reason,omitempty"`
	ArchiveKey  string          `json:"archive_key,omitempty"`
	QuotaDenied bool            `json:"quota_denied,omitempty"`
}

// RunOutcome summarises one pipeline execution. It is created once at run end.
type RunOutcome struct {
	RunID         string          `json:"run_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	Entities      []EntityOutcome `json:"entities"`
	Fetched       int             `json:"fetched"`
	Inserted      int             `json:"inserted"`
	Skipped       int             `json:"skipped"`
	Dropped       int             `json:"dropped"`
	QuotaConsumed int             `json:"quota_consumed"`
	Status        Status          `json:"status"`
	Cancelled     bool            `json:"cancelled"`
}

// Summarize fills the aggregate counters and the overall status from Entities.
// A run with no entities or where nothing succeeded is failed. It is partial
// when outcomes are mixed or any entity was served from the archive.
func (r *RunOutcome) Summarize() {
	r.Fetched, r.Inserted, r.Skipped, r.Dropped = 0, 0, 0, 0
	var failed, succeeded, fallback int
	for _, e := range r.Entities {
		r.Fetched += e.Fetched
		r.Inserted += e.Inserted
		r.Skipped += e.Skipped
		r.Dropped += e.Dropped
		switch e.Status {
		case StatusFailed:
			failed++
		default:
			succeeded++
			if e.Partial {
				fallback++
			}
		}
	}
	switch {
	case succeeded == 0:
		r.Status = StatusFailed
	case failed > 0 || fallback > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSuccess
	}
}
