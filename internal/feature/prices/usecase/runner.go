package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrade/internal/feature/prices/domain/entity"
)

// Runner is the entry point used by the CLI, the HTTP trigger and the cron
// schedule. It resolves the symbol list, prevents overlapping runs and
// records every outcome.
type Runner struct {
	coordinator *Coordinator
	symbols     []string
	source      SymbolSource
	recorder    OutcomeRecorder
	timeout     time.Duration
	mu          sync.Mutex
}

// NewRunner creates a Runner. When symbols is empty the source is consulted on every run.
// recorder and source may be nil.
func NewRunner(coordinator *Coordinator, symbols []string, source SymbolSource, recorder OutcomeRecorder, timeout time.Duration) *Runner {
	return &Runner{
		coordinator: coordinator,
		symbols:     symbols,
		source:      source,
		recorder:    recorder,
		timeout:     timeout,
	}
}

// Trigger performs one run. It returns ErrRunInProgress when another run is active.
func (r *Runner) Trigger(ctx context.Context) (entity.RunOutcome, error) {
	if !r.mu.TryLock() {
		return entity.RunOutcome{}, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.run(ctx)
}

// RunResult is delivered by Start when the background run ends.
type RunResult struct {
	Outcome entity.RunOutcome
	Err     error
}

// Start begins a run in the background. The overlap check happens before
// Start returns; the result is delivered on the returned channel.
func (r *Runner) Start(ctx context.Context) (<-chan RunResult, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	done := make(chan RunResult, 1)
	go func() {
		defer r.mu.Unlock()
		out, err := r.run(ctx)
		done <- RunResult{Outcome: out, Err: err}
	}()
	return done, nil
}

func (r *Runner) run(ctx context.Context) (entity.RunOutcome, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	symbols, err := r.resolveSymbols(ctx)
	if err != nil {
		return entity.RunOutcome{}, err
	}

	out, err := r.coordinator.Run(ctx, symbols)
	if err != nil {
		return entity.RunOutcome{}, err
	}

	if r.recorder != nil {
		// The run context may already be expired; recording must still happen.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := r.recorder.Record(recCtx, out); err != nil {
			slog.Error("failed to record run outcome", "run_id", out.RunID, "error", err)
		}
	}
	return out, nil
}

// Replay loads the archived window of symbol without calling the external API.
func (r *Runner) Replay(ctx context.Context, symbol string, window entity.Window) (entity.EntityOutcome, error) {
	if !r.mu.TryLock() {
		return entity.EntityOutcome{}, ErrRunInProgress
	}
	defer r.mu.Unlock()
	return r.coordinator.Replay(ctx, symbol, window), nil
}

// Latest returns the most recently recorded outcome.
func (r *Runner) Latest(ctx context.Context) (entity.RunOutcome, bool, error) {
	if r.recorder == nil {
		return entity.RunOutcome{}, false, nil
	}
	return r.recorder.Latest(ctx)
}

func (r *Runner) resolveSymbols(ctx context.Context) ([]string, error) {
	if len(r.symbols) > 0 {
		return r.symbols, nil
	}
	if r.source == nil {
		return nil, ErrNoEntities
	}
	symbols, err := r.source.ListActiveSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil, ErrNoEntities
	}
	return symbols, nil
}
