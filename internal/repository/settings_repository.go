package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"

	"gorm.io/gorm"
)

type SettingsRepository interface {
	// Get returns the stored settings row, or the defaults when none exists.
	Get(ctx context.Context) (domain.NotificationSettings, error)
	Save(ctx context.Context, s *domain.NotificationSettings) error
}

type GormSettingsRepository struct{ db *gorm.DB }

func NewSettingsRepository(db *gorm.DB) SettingsRepository { return &GormSettingsRepository{db: db} }

func (r *GormSettingsRepository) Get(ctx context.Context) (domain.NotificationSettings, error) {
	var s domain.NotificationSettings
	err := r.db.WithContext(ctx).First(&s, domain.NotificationSettingsID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "notification_settings", "get", "not_found")
			return domain.DefaultNotificationSettings(), nil
		}
		observability.RecordRepositoryOperation(ctx, "notification_settings", "get", "error")
		return domain.NotificationSettings{}, err
	}
	observability.RecordRepositoryOperation(ctx, "notification_settings", "get", "success")
	return s, nil
}

func (r *GormSettingsRepository) Save(ctx context.Context, s *domain.NotificationSettings) error {
	s.ID = domain.NotificationSettingsID
	s.UpdatedAt = time.Now().UTC()
	// Save upserts on primary key and writes zero values, so toggles can be switched off.
	if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "notification_settings", "save", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "notification_settings", "save", "success")
	return nil
}
