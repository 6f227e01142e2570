// Package alphavantage fetches daily OHLCV series from the Alpha Vantage API.
package alphavantage

import "time"

const (
	DefaultBaseURL = "https://www.alphavantage.co"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the Alpha Vantage client.
type Config struct {
	APIKey  string        `yaml:"api_key"`  // API key for authentication
	BaseURL string        `yaml:"base_url"` // Base URL for the API (e.g., "https://www.alphavantage.co")
	Timeout time.Duration `yaml:"timeout"`  // Per-call timeout; a call that exceeds it is transient
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}
