package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"fintrade/internal/feature/prices/domain/entity"
)

var ErrDB = errors.New("database error")

// mockFetcher is a mock implementation of the Fetcher interface.
type mockFetcher struct {
	FetchFunc  func(ctx context.Context, symbol string, window entity.Window) entity.FetchResult
	FetchCalls atomic.Int32
}

func (m *mockFetcher) Fetch(ctx context.Context, symbol string, window entity.Window) entity.FetchResult {
	m.FetchCalls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, symbol, window)
	}
	return entity.FetchResult{Status: entity.FetchPermanent, Reason: "FetchFunc is not implemented"}
}

type archivedBatch struct {
	symbol string
	window entity.Window
	obs    []entity.Observation
}

// fakeArchive keeps archived batches in memory.
type fakeArchive struct {
	mu        sync.Mutex
	batches   map[string]archivedBatch
	WriteErr  error
	ReadErr   error
	Writes    int
	ReadCalls int
	decode    func(symbol string, window entity.Window) []entity.Observation
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{batches: map[string]archivedBatch{}}
}

func (a *fakeArchive) seed(symbol, batchID string, window entity.Window, obs []entity.Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches[symbol+"/"+batchID] = archivedBatch{symbol: symbol, window: window, obs: obs}
}

func (a *fakeArchive) Write(ctx context.Context, symbol, batchID string, raw []byte, window entity.Window) (entity.ArchiveRef, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Writes++
	if a.WriteErr != nil {
		return entity.ArchiveRef{}, a.WriteErr
	}
	key := symbol + "/" + batchID
	if b, ok := a.batches[key]; ok {
		return entity.ArchiveRef{Key: key, Symbol: symbol, BatchID: batchID, Window: b.window, Existing: true}, nil
	}
	var obs []entity.Observation
	if a.decode != nil {
		obs = a.decode(symbol, window)
	}
	a.batches[key] = archivedBatch{symbol: symbol, window: window, obs: obs}
	return entity.ArchiveRef{Key: key, Symbol: symbol, BatchID: batchID, Window: window}, nil
}

func (a *fakeArchive) Read(ctx context.Context, symbol string, window entity.Window) ([]entity.Observation, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ReadCalls++
	if a.ReadErr != nil {
		return nil, false, a.ReadErr
	}
	var windows []entity.Window
	byDate := map[string]entity.Observation{}
	for _, b := range a.batches {
		if b.symbol != symbol {
			continue
		}
		windows = append(windows, b.window)
		for _, o := range b.obs {
			if window.Contains(o.Date) {
				byDate[o.Key()] = o
			}
		}
	}
	if !Covers(windows, window) {
		return nil, false, nil
	}
	out := make([]entity.Observation, 0, len(byDate))
	for _, o := range byDate {
		out = append(out, o)
	}
	return out, true, nil
}

// fakeLoader is an in-memory insert-if-absent store.
type fakeLoader struct {
	mu      sync.Mutex
	rows    map[string]entity.Observation
	LoadErr error
	Calls   int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{rows: map[string]entity.Observation{}}
}

func (l *fakeLoader) Load(ctx context.Context, symbol string, observations []entity.Observation) (entity.LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls++
	if l.LoadErr != nil {
		return entity.LoadResult{}, l.LoadErr
	}
	var res entity.LoadResult
	for _, o := range observations {
		if o.Validate() != nil {
			res.Skipped++
			continue
		}
		if _, ok := l.rows[o.Key()]; ok {
			res.Skipped++
			continue
		}
		l.rows[o.Key()] = o
		res.Inserted++
	}
	return res, nil
}

func (l *fakeLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

// fakeWatermarks is a monotonic in-memory watermark store.
type fakeWatermarks struct {
	mu         sync.Mutex
	marks      map[string]time.Time
	GetErr     error
	AdvanceErr error
}

func newFakeWatermarks() *fakeWatermarks {
	return &fakeWatermarks{marks: map[string]time.Time{}}
}

func (w *fakeWatermarks) Get(ctx context.Context, symbol string) (time.Time, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.GetErr != nil {
		return time.Time{}, false, w.GetErr
	}
	d, ok := w.marks[symbol]
	return d, ok, nil
}

func (w *fakeWatermarks) Advance(ctx context.Context, symbol string, date time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.AdvanceErr != nil {
		return w.AdvanceErr
	}
	if cur, ok := w.marks[symbol]; ok && !date.After(cur) {
		return nil
	}
	w.marks[symbol] = date
	return nil
}

func (w *fakeWatermarks) get(symbol string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.marks[symbol]
	return d, ok
}

// recordingSleeper records requested delays instead of sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dailyObservations returns one valid observation per day inside window.
func dailyObservations(symbol string, window entity.Window) []entity.Observation {
	var out []entity.Observation
	for d := window.First(); !d.After(window.Through); d = d.AddDate(0, 0, 1) {
		out = append(out, entity.Observation{
			Symbol: symbol, Date: d,
			Open: 100, High: 110, Low: 95, Close: 105, Volume: 1_000_000,
		})
	}
	return out
}

func okFetch(ctx context.Context, symbol string, window entity.Window) entity.FetchResult {
	return entity.FetchResult{
		Status:       entity.FetchOK,
		Observations: dailyObservations(symbol, window),
		Raw:          []byte(`{"Time Series (Daily)":{}}`),
	}
}
