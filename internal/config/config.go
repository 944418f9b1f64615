package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar points at an optional YAML file layered between the
// defaults and the environment.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	AppEnv   string `koanf:"app_env"`
	HTTPAddr string `koanf:"http_addr"`
	LogLevel string `koanf:"log_level"`

	DatabaseURL   string `koanf:"database_url"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	TokenSecret string `koanf:"token_secret"`

	DiscordClientID      string `koanf:"discord_client_id"`
	DiscordClientSecret  string `koanf:"discord_client_secret"`
	DiscordRedirectURL   string `koanf:"discord_redirect_url"`
	DiscordGuildID       string `koanf:"discord_guild_id"`
	DiscordBotToken      string `koanf:"discord_bot_token"`
	DiscordAPIBaseURL    string `koanf:"discord_api_base_url"`
	AutoProvisionMembers bool   `koanf:"auto_provision_members"`
	PostLoginRedirectURL string `koanf:"post_login_redirect_url"`

	GeoLookupBaseURL string        `koanf:"geo_lookup_base_url"`
	GeoLookupTimeout time.Duration `koanf:"geo_lookup_timeout"`
	GeoCacheTTL      time.Duration `koanf:"geo_cache_ttl"`

	NotifyTimeout       time.Duration `koanf:"notify_timeout"`
	NotifyRatePerSecond float64       `koanf:"notify_rate_per_second"`

	APIRateLimitRPM   int `koanf:"api_rate_limit_rpm"`
	LoginRateLimitRPM int `koanf:"login_rate_limit_rpm"`

	ShutdownTimeout              time.Duration `koanf:"shutdown_timeout"`
	ShutdownHTTPDrainTimeout     time.Duration `koanf:"shutdown_http_drain_timeout"`
	ShutdownObservabilityTimeout time.Duration `koanf:"shutdown_observability_timeout"`

	OTELServiceName           string        `koanf:"otel_service_name"`
	OTELEnvironment           string        `koanf:"otel_environment"`
	OTELExporterOTLPEndpoint  string        `koanf:"otel_exporter_otlp_endpoint"`
	OTELExporterOTLPInsecure  bool          `koanf:"otel_exporter_otlp_insecure"`
	OTELMetricsEnabled        bool          `koanf:"otel_metrics_enabled"`
	OTELTracingEnabled        bool          `koanf:"otel_tracing_enabled"`
	OTELLogsEnabled           bool          `koanf:"otel_logs_enabled"`
	OTELMetricsExportInterval time.Duration `koanf:"otel_metrics_export_interval"`
	OTELTraceSamplingRatio    float64       `koanf:"otel_trace_sampling_ratio"`
}

func defaults() Config {
	return Config{
		AppEnv:                       "development",
		HTTPAddr:                     ":8080",
		LogLevel:                     "info",
		DiscordAPIBaseURL:            "https://discord.com/api/v10",
		PostLoginRedirectURL:         "/",
		GeoLookupBaseURL:             "http://ip-api.com",
		GeoLookupTimeout:             2 * time.Second,
		GeoCacheTTL:                  6 * time.Hour,
		NotifyTimeout:                10 * time.Second,
		NotifyRatePerSecond:          1,
		APIRateLimitRPM:              300,
		LoginRateLimitRPM:            30,
		ShutdownTimeout:              20 * time.Second,
		ShutdownHTTPDrainTimeout:     10 * time.Second,
		ShutdownObservabilityTimeout: 5 * time.Second,
		OTELServiceName:              "arena-run",
		OTELEnvironment:              "development",
		OTELExporterOTLPEndpoint:     "localhost:4317",
		OTELExporterOTLPInsecure:     true,
		OTELMetricsExportInterval:    15 * time.Second,
		OTELTraceSamplingRatio:       0.1,
	}
}

// Load layers struct defaults, an optional YAML file and the process
// environment. Environment keys are the upper-case koanf keys, e.g.
// GEO_LOOKUP_TIMEOUT=1500ms.
func Load() (*Config, error) {
	cfg, err := load()
	profile := "unknown"
	if cfg != nil {
		profile = cfg.AppEnv
	}
	outcome := "loaded"
	if err != nil {
		outcome = "rejected"
	}
	recordConfigLoad(context.Background(), profile, outcome, configFailureClass(err))
	return cfg, err
}

func load() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path := strings.TrimSpace(os.Getenv(ConfigPathEnvVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	known := k.Exists
	if err := k.Load(env.Provider("", ".", func(key string) string {
		key = strings.ToLower(key)
		if !known(key) {
			return ""
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrWeakTokenSecret      = errors.New("TOKEN_SECRET must be at least 32 bytes")
	ErrNonPositiveDuration  = errors.New("must be a positive duration")
	ErrNonPositiveRate      = errors.New("must be positive")
	ErrInvalidSamplingRatio = errors.New("OTEL_TRACE_SAMPLING_RATIO must be within [0,1]")
	ErrIncompleteDiscord    = errors.New("DISCORD_CLIENT_SECRET, DISCORD_REDIRECT_URL and DISCORD_GUILD_ID are required with DISCORD_CLIENT_ID")
)

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if len(c.TokenSecret) < 32 {
		errs = append(errs, ErrWeakTokenSecret)
	}
	if c.GeoLookupTimeout <= 0 {
		errs = append(errs, fmt.Errorf("GEO_LOOKUP_TIMEOUT %w", ErrNonPositiveDuration))
	}
	if c.NotifyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("NOTIFY_TIMEOUT %w", ErrNonPositiveDuration))
	}
	if c.NotifyRatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("NOTIFY_RATE_PER_SECOND %w", ErrNonPositiveRate))
	}
	if c.APIRateLimitRPM <= 0 || c.LoginRateLimitRPM <= 0 {
		errs = append(errs, fmt.Errorf("API_RATE_LIMIT_RPM and LOGIN_RATE_LIMIT_RPM %w", ErrNonPositiveRate))
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, ErrInvalidSamplingRatio)
	}
	if c.DiscordClientID != "" && (c.DiscordClientSecret == "" || c.DiscordRedirectURL == "" || c.DiscordGuildID == "") {
		errs = append(errs, ErrIncompleteDiscord)
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

func (c *Config) DiscordLoginEnabled() bool { return c.DiscordClientID != "" }
