package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fintrade/internal/feature/prices/domain/entity"
	"fintrade/internal/feature/prices/usecase"
)

type outcomeGorm struct {
	db *gorm.DB
}

var _ usecase.OutcomeRecorder = (*outcomeGorm)(nil)

// NewOutcomeRecorder returns a gorm backed run outcome log.
func NewOutcomeRecorder(db *gorm.DB) *outcomeGorm {
	return &outcomeGorm{db: db}
}

// RunOutcomeModel is one finished run. Entity outcomes are kept as JSON.
type RunOutcomeModel struct {
	RunID         string    `gorm:"primaryKey;size:64"`
	StartedAt     time.Time `gorm:"not null"`
	FinishedAt    time.Time `gorm:"not null;index"`
	Status        string    `gorm:"size:16;not null"`
	Fetched       int
	Inserted      int
	Skipped       int
	Dropped       int
	QuotaConsumed int
	Cancelled     bool
	Entities      []entity.EntityOutcome `gorm:"serializer:json"`
}

func (RunOutcomeModel) TableName() string {
	return "run_outcomes"
}

func (r *outcomeGorm) Record(ctx context.Context, out entity.RunOutcome) error {
	m := RunOutcomeModel{
		RunID:         out.RunID,
		StartedAt:     out.StartedAt,
		FinishedAt:    out.FinishedAt,
		Status:        string(out.Status),
		Fetched:       out.Fetched,
		Inserted:      out.Inserted,
		Skipped:       out.Skipped,
		Dropped:       out.Dropped,
		QuotaConsumed: out.QuotaConsumed,
		Cancelled:     out.Cancelled,
		Entities:      out.Entities,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert run outcome %s: %w", out.RunID, err)
	}
	return nil
}

func (r *outcomeGorm) Latest(ctx context.Context) (entity.RunOutcome, bool, error) {
	var m RunOutcomeModel
	err := r.db.WithContext(ctx).Order("finished_at DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.RunOutcome{}, false, nil
	}
	if err != nil {
		return entity.RunOutcome{}, false, fmt.Errorf("find latest run outcome: %w", err)
	}
	return entity.RunOutcome{
		RunID:         m.RunID,
		StartedAt:     m.StartedAt.UTC(),
		FinishedAt:    m.FinishedAt.UTC(),
		Entities:      m.Entities,
		Fetched:       m.Fetched,
		Inserted:      m.Inserted,
		Skipped:       m.Skipped,
		Dropped:       m.Dropped,
		QuotaConsumed: m.QuotaConsumed,
		Status:        entity.Status(m.Status),
		Cancelled:     m.Cancelled,
	}, true, nil
}
