package usecase

import (
	"time"

	"fintrade/internal/feature/prices/domain/entity"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 4 * time.Second
	DefaultMaxDelay    = 60 * time.Second
)

// Decision is the scheduler's answer: wait Delay and retry, or Abort.
type Decision struct {
	Delay time.Duration
	Abort bool
}

// Backoff decides retry timing after a failed call. It holds no mutable state.
type Backoff struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
	// Jitter, when set, maps the computed delay to the delay actually used.
	Jitter func(time.Duration) time.Duration
}

// NewBackoff returns a Backoff with defaults applied for non-positive values.
func NewBackoff(maxAttempts int, base, max time.Duration) Backoff {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if max < base {
		max = DefaultMaxDelay
		if max < base {
			max = base
		}
	}
	return Backoff{MaxAttempts: maxAttempts, Base: base, Max: max}
}

// NextDelay returns the delay before the next attempt. attempt is the number
// of attempts already made (1 after the first failure).
func (b Backoff) NextDelay(attempt int, status entity.FetchStatus) Decision {
	if !status.Retryable() || attempt >= b.MaxAttempts {
		return Decision{Abort: true}
	}
	if attempt < 1 {
		attempt = 1
	}

	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Max {
			d = b.Max
			break
		}
	}
	if d > b.Max {
		d = b.Max
	}
	if b.Jitter != nil {
		d = b.Jitter(d)
	}
	return Decision{Delay: d}
}
