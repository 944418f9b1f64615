package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/app"
	"github.com/Dakheel-code/arena-run-sub001/internal/config"
	"github.com/Dakheel-code/arena-run-sub001/internal/detection"
	"github.com/Dakheel-code/arena-run-sub001/internal/geo"
	"github.com/Dakheel-code/arena-run-sub001/internal/health"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/handler"
	"github.com/Dakheel-code/arena-run-sub001/internal/http/router"
	"github.com/Dakheel-code/arena-run-sub001/internal/identity"
	"github.com/Dakheel-code/arena-run-sub001/internal/notify"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"
	"github.com/Dakheel-code/arena-run-sub001/internal/service"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type closers struct {
	db    func() error
	redis func() error
}

func provideDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := repository.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// provideRedis returns nil when no address is configured; the geo cache then
// stays in process.
func provideRedis(cfg *config.Config) redis.UniversalClient {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
}

func provideClosers(db *gorm.DB, rdb redis.UniversalClient) closers {
	c := closers{db: func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}}
	if rdb != nil {
		c.redis = rdb.Close
	}
	return c
}

func provideGeoCache(rdb redis.UniversalClient) geo.Cache {
	if rdb == nil {
		return geo.NewInMemoryCache()
	}
	return geo.NewRedisCache(rdb, "")
}

func provideGeoClient(cfg *config.Config, cache geo.Cache, logger *slog.Logger) *geo.Client {
	return geo.NewClient(geo.Options{
		BaseURL:  cfg.GeoLookupBaseURL,
		Timeout:  cfg.GeoLookupTimeout,
		CacheTTL: cfg.GeoCacheTTL,
	}, cache, logger)
}

func provideTokenAuthority(cfg *config.Config) *security.TokenAuthority {
	return security.NewTokenAuthority(cfg.TokenSecret)
}

func provideNotifyChain(cfg *config.Config, logger *slog.Logger) *notify.Chain {
	client := &http.Client{Timeout: cfg.NotifyTimeout}
	limiter := rate.NewLimiter(rate.Limit(cfg.NotifyRatePerSecond), 1)
	channels := []notify.Channel{}
	if cfg.DiscordBotToken != "" {
		channels = append(channels, notify.NewBotChannel(cfg.DiscordBotToken, cfg.DiscordAPIBaseURL, client))
	}
	channels = append(channels, notify.NewWebhookChannel(client))
	return notify.NewChain(limiter, logger, channels...)
}

func provideAlertDispatcher(cfg *config.Config, alerts repository.AlertRepository, chain *notify.Chain, logger *slog.Logger) *service.AlertDispatcher {
	return service.NewAlertDispatcher(alerts, chain, cfg.NotifyTimeout, logger)
}

func provideEngine(sessions repository.WatchSessionRepository, logger *slog.Logger) *detection.Engine {
	return detection.NewEngine(sessions, logger)
}

func provideSessionRecorder(cfg *config.Config, sessions repository.WatchSessionRepository, resolver *geo.Client, logger *slog.Logger) *service.SessionRecorder {
	return service.NewSessionRecorder(sessions, resolver, cfg.GeoLookupTimeout, logger)
}

func provideAuthHandler(cfg *config.Config, members repository.MemberRepository, tokens *security.TokenAuthority) *handler.AuthHandler {
	if !cfg.DiscordLoginEnabled() {
		return nil
	}
	provider := identity.NewDiscordProvider(identity.DiscordConfig{
		ClientID:     cfg.DiscordClientID,
		ClientSecret: cfg.DiscordClientSecret,
		RedirectURL:  cfg.DiscordRedirectURL,
		GuildID:      cfg.DiscordGuildID,
		APIBaseURL:   cfg.DiscordAPIBaseURL,
	})
	auth := service.NewAuthService(provider, members, tokens, cfg.AutoProvisionMembers)
	return handler.NewAuthHandler(auth, cfg.IsProduction(), cfg.PostLoginRedirectURL)
}

func provideReadiness(db *gorm.DB, rdb redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if rdb != nil {
		checkers = append(checkers, health.NewRedisChecker(rdb))
	}
	return health.NewProbeRunner(2*time.Second, 2*time.Second, checkers...)
}

func provideRouterDependencies(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	sessionHandler *handler.SessionHandler,
	adminHandler *handler.AdminHandler,
	tokens *security.TokenAuthority,
	readiness *health.ProbeRunner,
) router.Dependencies {
	return router.Dependencies{
		AuthHandler:       authHandler,
		UserHandler:       userHandler,
		SessionHandler:    sessionHandler,
		AdminHandler:      adminHandler,
		Tokens:            tokens,
		APIRateLimitRPM:   cfg.APIRateLimitRPM,
		LoginRateLimitRPM: cfg.LoginRateLimitRPM,
		Readiness:         readiness,
		EnableOTelHTTP:    cfg.OTELTracingEnabled || cfg.OTELMetricsEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, dep router.Dependencies) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.NewRouter(dep),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func provideObservability(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*observability.Runtime, error) {
	rt, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}
	return rt, nil
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	dispatcher *service.AlertDispatcher,
	readiness *health.ProbeRunner,
	c closers,
) *app.App {
	fns := []func() error{c.db}
	if c.redis != nil {
		fns = append(fns, c.redis)
	}
	return app.New(cfg, logger, server, runtime, dispatcher, readiness, fns...)
}
