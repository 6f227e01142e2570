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

type watermarkGorm struct {
	db *gorm.DB
}

var _ usecase.WatermarkStore = (*watermarkGorm)(nil)

// NewWatermarkStore returns a gorm backed monotonic watermark store.
func NewWatermarkStore(db *gorm.DB) *watermarkGorm {
	return &watermarkGorm{db: db}
}

// WatermarkModel stores the last durably loaded date per symbol.
type WatermarkModel struct {
	Symbol    string    `gorm:"primaryKey;size:16"`
	LastDate  time.Time `gorm:"type:date;not null"`
	UpdatedAt time.Time
}

func (WatermarkModel) TableName() string {
	return "watermarks"
}

func (r *watermarkGorm) Get(ctx context.Context, symbol string) (time.Time, bool, error) {
	var m WatermarkModel
	tx := r.db.WithContext(ctx).Where("symbol = ?", symbol).Limit(1).Find(&m)
	if tx.Error != nil {
		return time.Time{}, false, fmt.Errorf("find watermark: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return time.Time{}, false, nil
	}
	return entity.Day(m.LastDate.UTC()), true, nil
}

// Advance upserts the watermark only when date is later than the stored one.
func (r *watermarkGorm) Advance(ctx context.Context, symbol string, date time.Time) error {
	m := WatermarkModel{Symbol: symbol, LastDate: entity.Day(date), UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_date", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "watermarks.last_date < excluded.last_date"},
		}},
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert watermark: %w", err)
	}
	return nil
}
