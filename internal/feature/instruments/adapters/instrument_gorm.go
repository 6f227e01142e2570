// Package adapters provides the repository implementation of the instruments feature.
package adapters

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fintrade/internal/feature/instruments/domain/entity"
	"fintrade/internal/feature/instruments/usecase"
)

type instrumentGorm struct {
	db *gorm.DB
}

var _ usecase.InstrumentRepository = (*instrumentGorm)(nil)

// NewInstrumentRepository creates a gorm backed InstrumentRepository.
func NewInstrumentRepository(db *gorm.DB) *instrumentGorm {
	return &instrumentGorm{db: db}
}

// ListActive returns every active instrument ordered by sort_key.
func (r *instrumentGorm) ListActive(ctx context.Context) ([]entity.Instrument, error) {
	var out []entity.Instrument
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveSymbols returns only the symbols of active instruments, ordered by sort_key.
func (r *instrumentGorm) ListActiveSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := r.db.WithContext(ctx).
		Model(&entity.Instrument{}).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Pluck("symbol", &symbols).Error; err != nil {
		return nil, err
	}
	return symbols, nil
}

// InsertIfAbsent stores instruments whose symbol is not yet known and
// returns how many rows were added.
func (r *instrumentGorm) InsertIfAbsent(ctx context.Context, instruments []entity.Instrument) (int, error) {
	if len(instruments) == 0 {
		return 0, nil
	}
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoNothing: true,
	}).Create(&instruments)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return int(tx.RowsAffected), nil
}
