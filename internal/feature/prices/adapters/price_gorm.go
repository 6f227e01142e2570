// Package adapters holds the warehouse implementations of the prices ports.
package adapters

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
)

const insertBatchSize = 500

type priceGorm struct {
	db *gorm.DB
}

var _ usecase.Loader = (*priceGorm)(nil)

// NewPriceLoader returns a gorm backed insert-if-absent loader.
func NewPriceLoader(db *gorm.DB) *priceGorm {
	return &priceGorm{db: db}
}

// PriceModel is one row of daily_prices, keyed by (symbol, price_date).
type PriceModel struct {
	Symbol    string    `gorm:"primaryKey;size:16"`
	PriceDate time.Time `gorm:"primaryKey;type:date"`

	Open   float64 `gorm:"column:open_price;not null"`
	High   float64 `gorm:"column:high_price;not null"`
	Low    float64 `gorm:"column:low_price;not null"`
	Close  float64 `gorm:"column:close_price;not null"`
	Volume int64   `gorm:"not null;default:0"`

	LoadedAt time.Time `gorm:"autoCreateTime"`
}

func (PriceModel) TableName() string {
	return "daily_prices"
}

func toPriceModel(o entity.Observation) PriceModel {
	return PriceModel{
		Symbol:    o.Symbol,
		PriceDate: entity.Day(o.Date),
		Open:      o.Open,
		High:      o.High,
		Low:       o.Low,
		Close:     o.Close,
		Volume:    o.Volume,
	}
}

// Load inserts observations whose (symbol, price_date) is not yet stored.
// Invalid observations, in-batch duplicates and existing keys are skipped.
func (r *priceGorm) Load(ctx context.Context, symbol string, observations []entity.Observation) (entity.LoadResult, error) {
	rows := prepare(symbol, observations)
	res := entity.LoadResult{Skipped: len(observations) - len(rows)}
	if len(rows) == 0 {
		return res, nil
	}

	ms := make([]PriceModel, 0, len(rows))
	for _, o := range rows {
		ms = append(ms, toPriceModel(o))
	}

	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "price_date"}},
		DoNothing: true,
	}).CreateInBatches(&ms, insertBatchSize)
	if tx.Error != nil {
		return entity.LoadResult{}, fmt.Errorf("%w: insert daily prices %s: %w", usecase.ErrStoreUnavailable, symbol, tx.Error)
	}

	res.Inserted = int(tx.RowsAffected)
	res.Skipped += len(rows) - res.Inserted
	return res, nil
}

// Find returns the stored prices of symbol inside window, oldest first.
func (r *priceGorm) Find(ctx context.Context, symbol string, window entity.Window) ([]entity.Observation, error) {
	var rows []PriceModel
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND price_date > ? AND price_date <= ?", symbol, window.After, window.Through).
		Order("price_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: find daily prices %s: %w", usecase.ErrStoreUnavailable, symbol, err)
	}
	out := make([]entity.Observation, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Observation{
			Symbol: m.Symbol,
			Date:   entity.Day(m.PriceDate.UTC()),
			Open:   m.Open,
			High:   m.High,
			Low:    m.Low,
			Close:  m.Close,
			Volume: m.Volume,
		})
	}
	return out, nil
}

// prepare drops invalid observations and collapses duplicate keys, keeping
// the first occurrence. Symbols are forced to the loaded symbol.
func prepare(symbol string, observations []entity.Observation) []entity.Observation {
	seen := make(map[string]struct{}, len(observations))
	out := make([]entity.Observation, 0, len(observations))
	for _, o := range observations {
		o.Symbol = symbol
		o.Date = entity.Day(o.Date)
		if err := o.Validate(); err != nil {
			continue
		}
		if _, ok := seen[o.Key()]; ok {
			continue
		}
		seen[o.Key()] = struct{}{}
		out = append(out, o)
	}
	return out
}
