package service

import (
	"context"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
)

type AuthServiceInterface interface {
	LoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*LoginResult, error)
}

type PlaybackServiceInterface interface {
	Start(ctx context.Context, req StartRequest) (*domain.WatchSession, error)
	Update(ctx context.Context, memberID, sessionID string, watchSeconds int64) error
	End(ctx context.Context, memberID, sessionID string) error
	Ingest(ctx context.Context, req IngestRequest, sig ClientSignals) error
}

type SettingsServiceInterface interface {
	Get(ctx context.Context) (domain.NotificationSettings, error)
	Update(ctx context.Context, in domain.NotificationSettings) (domain.NotificationSettings, error)
}
