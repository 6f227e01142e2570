// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"fintrade/internal/feature/prices/adapters/alphavantage"
	infrahttp "fintrade/internal/platform/http"
)

// NewFetcher creates a fully configured Alpha Vantage client with HTTP client.
// The transport timeout is a backstop; the client applies cfg.Timeout per call.
func NewFetcher(cfg alphavantage.Config) *alphavantage.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = alphavantage.DefaultTimeout
	}
	httpClient := infrahttp.NewHTTPClient(timeout + 5*time.Second)
	return alphavantage.NewClient(cfg, httpClient)
}
