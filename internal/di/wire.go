//go:build wireinject

package di

import (
	"context"
	"log/slog"

	"github.com/Dakheel-code/arena-run-sub001/internal/app"
	"github.com/Dakheel-code/arena-run-sub001/internal/config"
	"github.com/Dakheel-code/arena-run-sub001/internal/detection"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/handler"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
	"github.com/Dakheel-code/arena-run-sub001/internal/service"

	"github.com/google/wire"
)

var storeSet = wire.NewSet(
	provideDB,
	provideRedis,
	provideClosers,
	repository.NewWatchSessionRepository,
	repository.NewAlertRepository,
	repository.NewSettingsRepository,
	repository.NewMemberRepository,
)

var serviceSet = wire.NewSet(
	provideGeoCache,
	provideGeoClient,
	provideTokenAuthority,
	provideNotifyChain,
	provideAlertDispatcher,
	provideEngine,
	provideSessionRecorder,
	service.NewSettingsService,
	service.NewPlaybackService,
	wire.Bind(new(service.SettingsReader), new(*service.SettingsService)),
	wire.Bind(new(service.Evaluator), new(*detection.Engine)),
	wire.Bind(new(service.AlertEmitter), new(*service.AlertDispatcher)),
	wire.Bind(new(service.PlaybackServiceInterface), new(*service.PlaybackService)),
	wire.Bind(new(service.SettingsServiceInterface), new(*service.SettingsService)),
)

var httpSet = wire.NewSet(
	provideAuthHandler,
	handler.NewUserHandler,
	handler.NewSessionHandler,
	handler.NewAdminHandler,
	provideReadiness,
	provideRouterDependencies,
	provideHTTPServer,
)

func InitializeApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app.App, error) {
	wire.Build(
		storeSet,
		serviceSet,
		httpSet,
		provideObservability,
		provideApp,
	)
	return nil, nil
}
