// Package usecase implements the fetch, archive, load and watermark cycle for daily prices.
package usecase

import (
	"context"
	"errors"
	"time"

	"fintrade/internal/feature/prices/domain/entity"
)

var (
	// ErrStoreUnavailable wraps failures of the warehouse or watermark store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrArchiveNotCovered is returned when archived data does not cover a window.
	ErrArchiveNotCovered = errors.New("archive does not cover window")
	// ErrQuotaExhausted is reported when the daily call budget is spent.
	ErrQuotaExhausted = errors.New("daily quota exhausted")
	// ErrRunInProgress is returned when a run is triggered while another is active.
	ErrRunInProgress = errors.New("run already in progress")
	// ErrNoEntities is returned when there is nothing to ingest.
	ErrNoEntities = errors.New("no entities configured")
)

// Interfaces are defined by the consumer (usecase), not the provider (adapters).

// Fetcher performs one external request for a symbol and window.
// It never sleeps or retries.
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, window entity.Window) entity.FetchResult
}

// Archive persists raw payloads write-once and reads them back for fallback.
type Archive interface {
	Write(ctx context.Context, symbol, batchID string, raw []byte, window entity.Window) (entity.ArchiveRef, error)
	Read(ctx context.Context, symbol string, window entity.Window) ([]entity.Observation, bool, error)
}

// Loader inserts observations unless their (symbol, date) key already exists.
type Loader interface {
	Load(ctx context.Context, symbol string, observations []entity.Observation) (entity.LoadResult, error)
}

// WatermarkStore keeps the last durably loaded date per symbol.
// Advance must ignore dates earlier than the stored one.
type WatermarkStore interface {
	Get(ctx context.Context, symbol string) (time.Time, bool, error)
	Advance(ctx context.Context, symbol string, date time.Time) error
}

// Quota hands out external-call permits from a shared daily budget.
type Quota interface {
	Acquire(ctx context.Context) (bool, error)
}

// OutcomeRecorder persists finished run outcomes.
type OutcomeRecorder interface {
	Record(ctx context.Context, outcome entity.RunOutcome) error
	Latest(ctx context.Context) (entity.RunOutcome, bool, error)
}

// SymbolSource lists the symbols to ingest when none are configured.
type SymbolSource interface {
	ListActiveSymbols(ctx context.Context) ([]string, error)
}

// Pacer spaces external calls. Wait blocks only the calling worker.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Sleeper waits for a backoff delay. Tests substitute one that records the delay.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type noPacer struct{}

func (noPacer) Wait(context.Context) error { return nil }
