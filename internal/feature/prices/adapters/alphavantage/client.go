package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"fintrade/internal/feature/prices/adapters/alphavantage/dto"
	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
)

// compactDays is the largest window served by outputsize=compact, which
// returns the latest 100 trading days.
const compactDays = 100

// maxBody caps the bytes read from one response.
const maxBody = 32 << 20

var (
	// ErrMissingSeries is returned when a body carries no daily series.
	ErrMissingSeries = errors.New("response has no daily time series")
)

// Client performs single TIME_SERIES_DAILY calls and classifies the result.
// It never sleeps or retries.
type Client struct {
	cfg    Config
	client *http.Client
}

var _ usecase.Fetcher = (*Client)(nil)

// NewClient creates a Client using the given HTTP client.
func NewClient(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg.withDefaults(), client: client}
}

// Fetch requests the daily series of symbol and returns the observations
// that fall inside window.
func (c *Client) Fetch(ctx context.Context, symbol string, window entity.Window) entity.FetchResult {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", OutputSize(window))
	q.Set("datatype", "json")
	q.Set("apikey", c.cfg.APIKey)
	u := fmt.Sprintf("%s/query?%s", strings.TrimRight(c.cfg.BaseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return entity.FetchResult{Status: entity.FetchPermanent, Reason: "build request", Err: err}
	}

	res, err := c.client.Do(req)
	if err != nil {
		return entity.FetchResult{Status: entity.FetchTransient, Reason: "request failed", Err: err}
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return entity.FetchResult{Status: entity.FetchTransient, Reason: "read body", Err: err}
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return entity.FetchResult{Status: entity.FetchRateLimited, Reason: "http 429"}
	case res.StatusCode >= 500:
		return entity.FetchResult{Status: entity.FetchTransient, Reason: fmt.Sprintf("http %d", res.StatusCode)}
	case res.StatusCode >= 400:
		return entity.FetchResult{Status: entity.FetchPermanent, Reason: fmt.Sprintf("http %d", res.StatusCode)}
	}

	var body dto.DailyResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return entity.FetchResult{Status: entity.FetchTransient, Reason: "undecodable body", Err: err}
	}
	if status, reason := classify(body); status != entity.FetchOK {
		return entity.FetchResult{Status: status, Reason: reason}
	}

	obs, dropped := observations(symbol, body, window)
	if dropped > 0 {
		slog.Warn("dropped invalid records", "symbol", symbol, "dropped", dropped)
	}
	return entity.FetchResult{
		Status:       entity.FetchOK,
		Observations: obs,
		Raw:          raw,
		Dropped:      dropped,
	}
}

// OutputSize picks "compact" for windows of at most 100 calendar days.
func OutputSize(window entity.Window) string {
	if window.Days() <= compactDays {
		return "compact"
	}
	return "full"
}

// classify maps the soft signals of a 200 body onto a fetch status.
func classify(body dto.DailyResponse) (entity.FetchStatus, string) {
	switch {
	case body.ErrorMessage != "":
		return entity.FetchPermanent, body.ErrorMessage
	case body.Note != "":
		return entity.FetchRateLimited, body.Note
	case body.Information != "":
		msg := strings.ToLower(body.Information)
		if strings.Contains(msg, "api key") || strings.Contains(msg, "demo") {
			return entity.FetchPermanent, body.Information
		}
		return entity.FetchRateLimited, body.Information
	case body.TimeSeries == nil:
		return entity.FetchPermanent, ErrMissingSeries.Error()
	}
	return entity.FetchOK, ""
}

// Decode parses an archived raw payload. It returns the valid observations
// inside window, sorted by date, and the number of records dropped.
func Decode(symbol string, raw []byte, window entity.Window) ([]entity.Observation, int, error) {
	var body dto.DailyResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, 0, fmt.Errorf("decode daily series %s: %w", symbol, err)
	}
	if body.TimeSeries == nil {
		return nil, 0, fmt.Errorf("decode daily series %s: %w", symbol, ErrMissingSeries)
	}
	obs, dropped := observations(symbol, body, window)
	return obs, dropped, nil
}

func observations(symbol string, body dto.DailyResponse, window entity.Window) ([]entity.Observation, int) {
	out := make([]entity.Observation, 0, len(body.TimeSeries))
	dropped := 0
	for day, bar := range body.TimeSeries {
		d, err := entity.ParseDay(day)
		if err != nil {
			dropped++
			continue
		}
		if !window.Contains(d) {
			continue
		}
		o, err := parseBar(symbol, d, bar)
		if err != nil {
			dropped++
			continue
		}
		if err := o.Validate(); err != nil {
			dropped++
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, dropped
}

func parseBar(symbol string, d time.Time, bar dto.DailyBar) (entity.Observation, error) {
	o, err := strconv.ParseFloat(bar.Open, 64)
	if err != nil {
		return entity.Observation{}, fmt.Errorf("parse open %q: %w", bar.Open, err)
	}
	h, err := strconv.ParseFloat(bar.High, 64)
	if err != nil {
		return entity.Observation{}, fmt.Errorf("parse high %q: %w", bar.High, err)
	}
	l, err := strconv.ParseFloat(bar.Low, 64)
	if err != nil {
		return entity.Observation{}, fmt.Errorf("parse low %q: %w", bar.Low, err)
	}
	c, err := strconv.ParseFloat(bar.Close, 64)
	if err != nil {
		return entity.Observation{}, fmt.Errorf("parse close %q: %w", bar.Close, err)
	}
	v, err := strconv.ParseInt(bar.Volume, 10, 64)
	if err != nil {
		return entity.Observation{}, fmt.Errorf("parse volume %q: %w", bar.Volume, err)
	}
	return entity.Observation{Symbol: symbol, Date: d, Open: o, High: h, Low: l, Close: c, Volume: v}, nil
}
