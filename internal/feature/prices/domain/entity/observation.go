// Package entity defines the domain models for the prices feature.
package entity

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the wire and partition format used for observation dates.
const DateLayout = "2006-01-02"

var (
	// ErrNonPositivePrice is returned when any OHLC value is zero or negative.
	ErrNonPositivePrice = errors.New("price must be positive")
	// ErrNegativeVolume is returned when volume is below zero.
	ErrNegativeVolume = errors.New("volume must not be negative")
	// ErrPriceEnvelope is returned when open/close lie outside the high/low range.
	ErrPriceEnvelope = errors.New("open/close outside high/low range")
)

// Observation is one daily OHLCV record for a symbol.
// (Symbol, Date) is the natural key.
type Observation struct {
	Symbol string    // Ticker symbol (e.g. "AAPL")
	Date   time.Time // Trading date, UTC midnight
	Open   float64   // Opening price
	High   float64   // Highest price of the day
	Low    float64   // Lowest price of the day
	Close  float64   // Closing price
	Volume int64     // Traded volume
}

// Validate checks the OHLCV invariants of a single observation.
func (o Observation) Validate() error {
	if o.Open <= 0 || o.High <= 0 || o.Low <= 0 || o.Close <= 0 {
		return fmt.Errorf("%s %s: %w", o.Symbol, o.Date.Format(DateLayout), ErrNonPositivePrice)
	}
	if o.Volume < 0 {
		return fmt.Errorf("%s %s: %w", o.Symbol, o.Date.Format(DateLayout), ErrNegativeVolume)
	}
	if o.High < o.Open || o.High < o.Low || o.High < o.Close || o.Low > o.Close || o.Low > o.Open {
		return fmt.Errorf("%s %s: %w", o.Symbol, o.Date.Format(DateLayout), ErrPriceEnvelope)
	}
	return nil
}

// Key returns the natural key of the observation.
func (o Observation) Key() string {
	return o.Symbol + "|" + o.Date.Format(DateLayout)
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
