package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"fintrade/internal/feature/prices/domain/entity"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 2

// Config holds the run-level settings of the Coordinator.
type Config struct {
	Concurrency  int            // max entities processed at once
	HistoryFloor time.Time      // first date fetched for a symbol without watermark
	Location     *time.Location // zone in which "today" is evaluated
}

// Coordinator drives every symbol through
// windowing -> fetching -> (archive fallback) -> archiving -> loading -> advancing.
type Coordinator struct {
	cfg        Config
	fetcher    Fetcher
	archive    Archive
	loader     Loader
	watermarks *WatermarkTracker
	quota      Quota
	backoff    Backoff
	pacer      Pacer
	sleeper    Sleeper
	now        func() time.Time
	newRunID   func() string
	logger     *slog.Logger
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithPacer spaces external calls with p.
func WithPacer(p Pacer) Option { return func(c *Coordinator) { c.pacer = p } }

// WithSleeper replaces the timer used for backoff waits.
func WithSleeper(s Sleeper) Option { return func(c *Coordinator) { c.sleeper = s } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithRunID replaces the run id generator.
func WithRunID(f func() string) Option { return func(c *Coordinator) { c.newRunID = f } }

// NewCoordinator wires the pipeline components together.
func NewCoordinator(cfg Config, fetcher Fetcher, archive Archive, loader Loader, watermarks WatermarkStore, quota Quota, backoff Backoff, opts ...Option) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	c := &Coordinator{
		cfg:        cfg,
		fetcher:    fetcher,
		archive:    archive,
		loader:     loader,
		watermarks: NewWatermarkTracker(watermarks, cfg.HistoryFloor),
		quota:      quota,
		backoff:    backoff,
		pacer:      noPacer{},
		sleeper:    timerSleeper{},
		now:        time.Now,
		newRunID:   uuid.NewString,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes symbols and returns the run outcome. Failures of single
// symbols are reported in the outcome; Run itself only fails on empty input.
func (c *Coordinator) Run(ctx context.Context, symbols []string) (entity.RunOutcome, error) {
	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		return entity.RunOutcome{}, ErrNoEntities
	}

	started := c.now()
	today := entity.Day(started.In(c.cfg.Location))
	out := entity.RunOutcome{RunID: c.newRunID(), StartedAt: started.UTC()}
	log := c.logger.With("run_id", out.RunID)
	log.Info("pipeline run starting", "entities", len(symbols), "today", today.Format(entity.DateLayout), "concurrency", c.cfg.Concurrency)

	var calls atomic.Int64
	outcomes := make([]entity.EntityOutcome, len(symbols))
	p := pool.New().WithMaxGoroutines(c.cfg.Concurrency)
	for i, symbol := range symbols {
		p.Go(func() {
			r := c.newEntityRun(symbol, today, &calls, log)
			outcomes[i] = c.drive(ctx, r, entity.StateIdle)
		})
	}
	p.Wait()

	out.Entities = outcomes
	out.QuotaConsumed = int(calls.Load())
	out.Cancelled = ctx.Err() != nil
	out.FinishedAt = c.now().UTC()
	out.Summarize()

	log.Info("pipeline run finished",
		"status", out.Status,
		"fetched", out.Fetched,
		"inserted", out.Inserted,
		"skipped", out.Skipped,
		"quota_consumed", out.QuotaConsumed,
		"cancelled", out.Cancelled,
	)
	return out, nil
}

// Replay loads archived data for window into the warehouse without calling
// the external API. The watermark only moves when window starts at or before
// it, and never past today.
func (c *Coordinator) Replay(ctx context.Context, symbol string, window entity.Window) entity.EntityOutcome {
	var calls atomic.Int64
	r := c.newEntityRun(strings.ToUpper(strings.TrimSpace(symbol)), entity.Day(window.Through), &calls, c.logger)
	r.replay = true
	r.out.Window = window
	return c.drive(ctx, r, entity.StateArchiveFallback)
}

// entityRun is the state carried by one symbol through the machine.
// It is owned by exactly one worker.
type entityRun struct {
	symbol       string
	today        time.Time
	batchID      string
	raw          []byte
	observations []entity.Observation
	lastReason   string
	replay       bool
	calls        *atomic.Int64
	log          *slog.Logger
	out          entity.EntityOutcome
}

func (c *Coordinator) newEntityRun(symbol string, today time.Time, calls *atomic.Int64, log *slog.Logger) *entityRun {
	return &entityRun{
		symbol:  symbol,
		today:   today,
		batchID: today.Format(entity.DateLayout),
		calls:   calls,
		log:     log.With("symbol", symbol),
		out:     entity.EntityOutcome{Symbol: symbol},
	}
}

func (r *entityRun) fail(reason string) entity.State {
	r.out.Status = entity.StatusFailed
	r.out.Reason = reason
	r.log.Error("entity failed", "reason", reason, "window", r.out.Window.String())
	return entity.StateDone
}

func (r *entityRun) cancelled(err error) entity.State {
	return r.fail("cancelled: " + err.Error())
}

func (c *Coordinator) drive(ctx context.Context, r *entityRun, state entity.State) entity.EntityOutcome {
	for state != entity.StateDone {
		r.out.Path = append(r.out.Path, state)
		switch state {
		case entity.StateIdle:
			state = c.idle(ctx, r)
		case entity.StateWindowing:
			state = c.windowing(ctx, r)
		case entity.StateFetching:
			state = c.fetching(ctx, r)
		case entity.StateArchiveFallback:
			state = c.archiveFallback(ctx, r)
		case entity.StateArchiving:
			state = c.archiving(ctx, r)
		case entity.StateLoading:
			state = c.loading(ctx, r)
		case entity.StateAdvancing:
			state = c.advancing(ctx, r)
		default:
			state = r.fail(fmt.Sprintf("unknown state %q", state))
		}
	}
	r.out.Path = append(r.out.Path, entity.StateDone)
	return r.out
}

func (c *Coordinator) idle(ctx context.Context, r *entityRun) entity.State {
	if err := ctx.Err(); err != nil {
		return r.cancelled(err)
	}
	return entity.StateWindowing
}

func (c *Coordinator) windowing(ctx context.Context, r *entityRun) entity.State {
	window, current, err := c.watermarks.Window(ctx, r.symbol, r.today)
	if err != nil {
		return r.fail(err.Error())
	}
	r.out.Window = window
	r.out.Watermark = current
	if window.Empty() {
		r.out.Status = entity.StatusSuccess
		r.log.Info("window empty, nothing to fetch")
		return entity.StateDone
	}
	return entity.StateFetching
}

func (c *Coordinator) fetching(ctx context.Context, r *entityRun) entity.State {
	for {
		if err := ctx.Err(); err != nil {
			return r.cancelled(err)
		}

		ok, err := c.quota.Acquire(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.cancelled(ctxErr)
			}
			r.log.Warn("quota check failed, treating as exhausted", "error", err)
		}
		if !ok {
			r.out.QuotaDenied = true
			r.lastReason = ErrQuotaExhausted.Error()
			return entity.StateArchiveFallback
		}
		r.calls.Add(1)

		if err := c.pacer.Wait(ctx); err != nil {
			return r.cancelled(err)
		}

		r.out.Attempts++
		res := c.fetcher.Fetch(ctx, r.symbol, r.out.Window)
		switch res.Status {
		case entity.FetchOK:
			r.raw = res.Raw
			r.observations = res.Observations
			r.out.Fetched = len(res.Observations)
			r.out.Dropped = res.Dropped
			return entity.StateArchiving
		case entity.FetchPermanent:
			r.lastReason = fmt.Sprintf("%s: %s", res.Status, res.Reason)
			r.log.Warn("permanent fetch error", "reason", res.Reason)
			return entity.StateArchiveFallback
		}

		if err := ctx.Err(); err != nil {
			return r.cancelled(err)
		}
		r.lastReason = fmt.Sprintf("%s: %s", res.Status, res.Reason)
		d := c.backoff.NextDelay(r.out.Attempts, res.Status)
		if d.Abort {
			r.log.Warn("retries exhausted", "attempts", r.out.Attempts, "status", res.Status.String())
			return entity.StateArchiveFallback
		}
		r.out.Delays = append(r.out.Delays, d.Delay)
		r.log.Warn("retrying after backoff", "attempt", r.out.Attempts, "status", res.Status.String(), "delay", d.Delay)
		if err := c.sleeper.Sleep(ctx, d.Delay); err != nil {
			return r.cancelled(err)
		}
	}
}

func (c *Coordinator) archiveFallback(ctx context.Context, r *entityRun) entity.State {
	if c.archive == nil {
		return r.fail(joinReason(r.lastReason, "no archive configured"))
	}
	obs, covered, err := c.archive.Read(ctx, r.symbol, r.out.Window)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.cancelled(ctxErr)
		}
		return r.fail(joinReason(r.lastReason, "archive read: "+err.Error()))
	}
	if !covered {
		return r.fail(joinReason(r.lastReason, ErrArchiveNotCovered.Error()))
	}
	r.observations = obs
	r.out.Fetched = len(obs)
	r.out.Partial = true
	r.log.Info("serving window from archive", "observations", len(obs))
	return entity.StateLoading
}

func (c *Coordinator) archiving(ctx context.Context, r *entityRun) entity.State {
	if c.archive == nil {
		r.log.Warn("no archive configured, raw payload not persisted")
		return entity.StateLoading
	}
	ref, err := c.archive.Write(ctx, r.symbol, r.batchID, r.raw, r.out.Window)
	if err != nil {
		return r.fail("archive write: " + err.Error())
	}
	r.out.ArchiveKey = ref.Key
	r.log.Info("raw payload archived", "key", ref.Key, "existing", ref.Existing)
	return entity.StateLoading
}

func (c *Coordinator) loading(ctx context.Context, r *entityRun) entity.State {
	res, err := c.loader.Load(ctx, r.symbol, r.observations)
	if err != nil {
		if !errors.Is(err, ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return r.fail("load: " + err.Error())
	}
	r.out.Inserted = res.Inserted
	r.out.Skipped = res.Skipped + r.out.Dropped
	return entity.StateAdvancing
}

func (c *Coordinator) advancing(ctx context.Context, r *entityRun) entity.State {
	through := r.out.Window.Through
	if r.replay {
		target, move, err := c.replayTarget(ctx, r)
		if err != nil {
			return r.fail(err.Error())
		}
		if !move {
			r.out.Status = entity.StatusSuccess
			r.log.Info("replay loaded, watermark kept",
				"inserted", r.out.Inserted,
				"skipped", r.out.Skipped,
			)
			return entity.StateDone
		}
		through = target
	}
	if err := c.watermarks.Advance(ctx, r.symbol, through); err != nil {
		return r.fail(err.Error())
	}
	r.out.Watermark = &through
	r.out.Status = entity.StatusSuccess
	r.log.Info("entity done",
		"inserted", r.out.Inserted,
		"skipped", r.out.Skipped,
		"partial", r.out.Partial,
		"watermark", through.Format(entity.DateLayout),
	)
	return entity.StateDone
}

// replayTarget returns the watermark a replayed window may commit. A window
// starting past the current watermark leaves a gap, so nothing is committed.
func (c *Coordinator) replayTarget(ctx context.Context, r *entityRun) (time.Time, bool, error) {
	wm, ok, err := c.watermarks.Get(ctx, r.symbol)
	if err != nil {
		return time.Time{}, false, err
	}
	if ok {
		r.out.Watermark = &wm
	}
	if !c.watermarks.Reaches(wm, ok, r.out.Window.After) {
		r.log.Warn("replayed window leaves a gap after the watermark",
			"window", r.out.Window.String())
		return time.Time{}, false, nil
	}
	through := entity.Day(r.out.Window.Through)
	if today := entity.Day(c.now().In(c.cfg.Location)); through.After(today) {
		through = today
	}
	if ok && !through.After(wm) {
		return time.Time{}, false, nil
	}
	return through, true, nil
}

func joinReason(prev, reason string) string {
	if prev == "" {
		return reason
	}
	return prev + "; " + reason
}

func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
