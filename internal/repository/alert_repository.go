package repository

import (
	"context"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"

	"gorm.io/gorm"
)

// AlertRepository is append-only.
type AlertRepository interface {
	Create(ctx context.Context, a *domain.Alert) error
}

type GormAlertRepository struct{ db *gorm.DB }

func NewAlertRepository(db *gorm.DB) AlertRepository { return &GormAlertRepository{db: db} }

func (r *GormAlertRepository) Create(ctx context.Context, a *domain.Alert) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "alert", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "alert", "create", "success")
	return nil
}
