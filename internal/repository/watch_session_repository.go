package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"

	"gorm.io/gorm"
)

var ErrWatchSessionNotFound = errors.New("watch session not found")

type WatchSessionRepository interface {
	Create(ctx context.Context, s *domain.WatchSession) error
	FindByIDForMember(ctx context.Context, memberID, sessionID string) (*domain.WatchSession, error)
	FindLatestOpen(ctx context.Context, memberID, videoID string) (*domain.WatchSession, error)
	// AdvanceWatchSeconds only ever raises watch_seconds on an open session.
	AdvanceWatchSeconds(ctx context.Context, memberID, sessionID string, watchSeconds int64) (bool, error)
	Close(ctx context.Context, memberID, sessionID string, endedAt time.Time) (bool, error)
	CloseOpenForMemberVideo(ctx context.Context, memberID, videoID string, endedAt time.Time) (int64, error)
	SessionsForMemberSince(ctx context.Context, memberID string, since time.Time) ([]domain.WatchSession, error)
	CountForMemberVideoSince(ctx context.Context, memberID, videoID string, since time.Time) (int64, error)
}

type GormWatchSessionRepository struct{ db *gorm.DB }

func NewWatchSessionRepository(db *gorm.DB) WatchSessionRepository {
	return &GormWatchSessionRepository{db: db}
}

func (r *GormWatchSessionRepository) Create(ctx context.Context, s *domain.WatchSession) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "watch_session", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "create", "success")
	return nil
}

func (r *GormWatchSessionRepository) FindByIDForMember(ctx context.Context, memberID, sessionID string) (*domain.WatchSession, error) {
	var s domain.WatchSession
	err := r.db.WithContext(ctx).Where("id = ? AND member_id = ?", sessionID, memberID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "watch_session", "find_by_id_for_member", "not_found")
			return nil, ErrWatchSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "watch_session", "find_by_id_for_member", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "find_by_id_for_member", "success")
	return &s, nil
}

func (r *GormWatchSessionRepository) FindLatestOpen(ctx context.Context, memberID, videoID string) (*domain.WatchSession, error) {
	var s domain.WatchSession
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND video_id = ? AND ended_at IS NULL", memberID, videoID).
		Order("started_at DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "watch_session", "find_latest_open", "not_found")
			return nil, ErrWatchSessionNotFound
		}
		observability.RecordRepositoryOperation(ctx, "watch_session", "find_latest_open", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "find_latest_open", "success")
	return &s, nil
}

func (r *GormWatchSessionRepository) AdvanceWatchSeconds(ctx context.Context, memberID, sessionID string, watchSeconds int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.WatchSession{}).
		Where("id = ? AND member_id = ? AND ended_at IS NULL AND watch_seconds < ?", sessionID, memberID, watchSeconds).
		Updates(map[string]any{"watch_seconds": watchSeconds, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "watch_session", "advance_watch_seconds", "error")
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		observability.RecordRepositoryOperation(ctx, "watch_session", "advance_watch_seconds", "success")
		return true, nil
	}
	// Zero rows is a no-op for a stale or repeated value, unless the session is unknown.
	if _, err := r.FindByIDForMember(ctx, memberID, sessionID); err != nil {
		if errors.Is(err, ErrWatchSessionNotFound) {
			observability.RecordRepositoryOperation(ctx, "watch_session", "advance_watch_seconds", "not_found")
		}
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "advance_watch_seconds", "noop")
	return false, nil
}

func (r *GormWatchSessionRepository) Close(ctx context.Context, memberID, sessionID string, endedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.WatchSession{}).
		Where("id = ? AND member_id = ? AND ended_at IS NULL", sessionID, memberID).
		Updates(map[string]any{"ended_at": endedAt.UTC(), "updated_at": endedAt.UTC()})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "watch_session", "close", "error")
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		observability.RecordRepositoryOperation(ctx, "watch_session", "close", "success")
		return true, nil
	}
	if _, err := r.FindByIDForMember(ctx, memberID, sessionID); err != nil {
		if errors.Is(err, ErrWatchSessionNotFound) {
			observability.RecordRepositoryOperation(ctx, "watch_session", "close", "not_found")
		}
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "close", "noop")
	return false, nil
}

func (r *GormWatchSessionRepository) CloseOpenForMemberVideo(ctx context.Context, memberID, videoID string, endedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.WatchSession{}).
		Where("member_id = ? AND video_id = ? AND ended_at IS NULL", memberID, videoID).
		Updates(map[string]any{"ended_at": endedAt.UTC(), "updated_at": endedAt.UTC()})
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "watch_session", "close_open_for_member_video", "error")
		return res.RowsAffected, res.Error
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "close_open_for_member_video", "success")
	return res.RowsAffected, nil
}

func (r *GormWatchSessionRepository) SessionsForMemberSince(ctx context.Context, memberID string, since time.Time) ([]domain.WatchSession, error) {
	var sessions []domain.WatchSession
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND started_at >= ?", memberID, since.UTC()).
		Order("started_at DESC").
		Find(&sessions).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "watch_session", "sessions_for_member_since", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "sessions_for_member_since", "success")
	return sessions, nil
}

func (r *GormWatchSessionRepository) CountForMemberVideoSince(ctx context.Context, memberID, videoID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.WatchSession{}).
		Where("member_id = ? AND video_id = ? AND started_at >= ?", memberID, videoID, since.UTC()).
		Count(&count).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "watch_session", "count_for_member_video_since", "error")
		return 0, err
	}
	observability.RecordRepositoryOperation(ctx, "watch_session", "count_for_member_video_since", "success")
	return count, nil
}
