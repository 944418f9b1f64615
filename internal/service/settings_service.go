package service

import (
	"context"
	"fmt"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
)

type SettingsService struct {
	repo repository.SettingsRepository
}

func NewSettingsService(repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

func (s *SettingsService) Get(ctx context.Context) (domain.NotificationSettings, error) {
	return s.repo.Get(ctx)
}

// Update stores settings that passed field validation at the edge.
func (s *SettingsService) Update(ctx context.Context, in domain.NotificationSettings) (domain.NotificationSettings, error) {
	if in.AlertOddHours && in.OddHoursStart == in.OddHoursEnd {
		observability.RecordSettingsUpdate(ctx, "invalid")
		return domain.NotificationSettings{}, fmt.Errorf("%w: odd hours window must not be empty", ErrValidation)
	}
	if err := s.repo.Save(ctx, &in); err != nil {
		observability.RecordSettingsUpdate(ctx, "error")
		return domain.NotificationSettings{}, err
	}
	observability.RecordSettingsUpdate(ctx, "success")
	return in, nil
}
