package repository

import (
	"context"
	"errors"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"

	"gorm.io/gorm"
)

var ErrMemberNotFound = errors.New("member not found")

type MemberRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Member, error)
	Create(ctx context.Context, m *domain.Member) error
	UpdateProfile(ctx context.Context, id, displayName, avatar string) error
}

type GormMemberRepository struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) MemberRepository { return &GormMemberRepository{db: db} }

func (r *GormMemberRepository) FindByID(ctx context.Context, id string) (*domain.Member, error) {
	var m domain.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "member", "find_by_id", "not_found")
			return nil, ErrMemberNotFound
		}
		observability.RecordRepositoryOperation(ctx, "member", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "member", "find_by_id", "success")
	return &m, nil
}

func (r *GormMemberRepository) Create(ctx context.Context, m *domain.Member) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "member", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "member", "create", "success")
	return nil
}

func (r *GormMemberRepository) UpdateProfile(ctx context.Context, id, displayName, avatar string) error {
	err := r.db.WithContext(ctx).Model(&domain.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{"display_name": displayName, "avatar": avatar}).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "member", "update_profile", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "member", "update_profile", "success")
	return nil
}
