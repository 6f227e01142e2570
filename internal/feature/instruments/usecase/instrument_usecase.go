// Package usecase implements the business logic of the instrument catalog.
package usecase

import (
	"context"
	"fmt"

	"fintrade/internal/feature/instruments/domain/entity"
)

// InstrumentRepository abstracts the persistence layer for instruments.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type InstrumentRepository interface {
	ListActive(ctx context.Context) ([]entity.Instrument, error)
	ListActiveSymbols(ctx context.Context) ([]string, error)
	InsertIfAbsent(ctx context.Context, instruments []entity.Instrument) (int, error)
}

// DefaultInstruments is the catalog loaded by Seed.
var DefaultInstruments = []entity.Instrument{
	{Symbol: "AAPL", CompanyName: "Apple Inc.", Sector: "Technology", Exchange: "NASDAQ"},
	{Symbol: "MSFT", CompanyName: "Microsoft Corporation", Sector: "Technology", Exchange: "NASDAQ"},
	{Symbol: "GOOGL", CompanyName: "Alphabet Inc.", Sector: "Technology", Exchange: "NASDAQ"},
	{Symbol: "AMZN", CompanyName: "Amazon.com Inc.", Sector: "Consumer Discretionary", Exchange: "NASDAQ"},
	{Symbol: "META", CompanyName: "Meta Platforms Inc.", Sector: "Technology", Exchange: "NASDAQ"},
	{Symbol: "TSLA", CompanyName: "Tesla Inc.", Sector: "Consumer Discretionary", Exchange: "NASDAQ"},
	{Symbol: "NVDA", CompanyName: "NVIDIA Corporation", Sector: "Technology", Exchange: "NASDAQ"},
	{Symbol: "JPM", CompanyName: "JPMorgan Chase & Co.", Sector: "Finance", Exchange: "NYSE"},
	{Symbol: "BAC", CompanyName: "Bank of America Corporation", Sector: "Finance", Exchange: "NYSE"},
	{Symbol: "JNJ", CompanyName: "Johnson & Johnson", Sector: "Healthcare", Exchange: "NYSE"},
	{Symbol: "PFE", CompanyName: "Pfizer Inc.", Sector: "Healthcare", Exchange: "NYSE"},
	{Symbol: "XOM", CompanyName: "Exxon Mobil Corporation", Sector: "Energy", Exchange: "NYSE"},
	{Symbol: "CVX", CompanyName: "Chevron Corporation", Sector: "Energy", Exchange: "NYSE"},
	{Symbol: "WMT", CompanyName: "Walmart Inc.", Sector: "Consumer Staples", Exchange: "NYSE"},
	{Symbol: "KO", CompanyName: "The Coca-Cola Company", Sector: "Consumer Staples", Exchange: "NYSE"},
}

// InstrumentUsecase provides the instrument catalog operations.
type InstrumentUsecase struct {
	repo InstrumentRepository
}

// NewInstrumentUsecase creates a new InstrumentUsecase with the given repository.
func NewInstrumentUsecase(r InstrumentRepository) *InstrumentUsecase {
	return &InstrumentUsecase{repo: r}
}

// ListActiveInstruments returns all active instruments.
func (u *InstrumentUsecase) ListActiveInstruments(ctx context.Context) ([]entity.Instrument, error) {
	return u.repo.ListActive(ctx)
}

// ListActiveSymbols returns the symbols the pipeline ingests when none are configured.
func (u *InstrumentUsecase) ListActiveSymbols(ctx context.Context) ([]string, error) {
	return u.repo.ListActiveSymbols(ctx)
}

// Seed inserts the default catalog. Existing symbols are left unchanged.
func (u *InstrumentUsecase) Seed(ctx context.Context) (int, error) {
	rows := make([]entity.Instrument, len(DefaultInstruments))
	for i, in := range DefaultInstruments {
		in.IsActive = true
		in.SortKey = (i + 1) * 10
		rows[i] = in
	}
	n, err := u.repo.InsertIfAbsent(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("seed instruments: %w", err)
	}
	return n, nil
}
