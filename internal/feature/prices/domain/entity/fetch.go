package entity

// FetchStatus classifies the outcome of one external call.
type FetchStatus int

const (
	FetchOK FetchStatus = iota
	FetchRateLimited
	FetchTransient
	FetchPermanent
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchRateLimited:
		return "rate_limited"
	case FetchTransient:
		return "transient_error"
	case FetchPermanent:
		return "permanent_error"
	default:
		return "unknown"
	}
}

// Retryable reports whether a later attempt can succeed.
func (s FetchStatus) Retryable() bool {
	return s == FetchRateLimited || s == FetchTransient
}

// FetchResult is the classified result of a single fetch.
// Observations, Raw and Dropped are only meaningful when Status is FetchOK.
type FetchResult struct {
	Status       FetchStatus
	Observations []Observation
	Raw          []byte // response body as received, pre-validation
	Dropped      int    // records that failed parsing or validation
	Reason       string
	Err          error
}

// ArchiveRef points at one write-once archive record.
type ArchiveRef struct {
	Key      string
	Symbol   string
	BatchID  string
	Window   Window
	Existing bool // true when the record was already present
}

// LoadResult reports the effect of one warehouse load.
type LoadResult struct {
	Inserted int
	Skipped  int
}
