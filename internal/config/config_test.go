package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("TOKEN_SECRET", testSecret)
	t.Setenv("DISCORD_CLIENT_ID", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeoLookupTimeout != 2*time.Second {
		t.Fatalf("geo timeout=%s want 2s", cfg.GeoLookupTimeout)
	}
	if cfg.NotifyTimeout != 10*time.Second {
		t.Fatalf("notify timeout=%s want 10s", cfg.NotifyTimeout)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr=%q", cfg.HTTPAddr)
	}
	if cfg.DiscordLoginEnabled() {
		t.Fatal("discord login must be disabled without a client id")
	}
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "arena.yaml")
	content := "geo_lookup_timeout: 3s\nhttp_addr: \":9000\"\nnotify_rate_per_second: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("GEO_LOOKUP_TIMEOUT", "1500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeoLookupTimeout != 1500*time.Millisecond {
		t.Fatalf("env must win over file, got %s", cfg.GeoLookupTimeout)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Fatalf("file must win over defaults, got %q", cfg.HTTPAddr)
	}
	if cfg.NotifyRatePerSecond != 2 {
		t.Fatalf("notify rate=%v want 2", cfg.NotifyRatePerSecond)
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_SECRET", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.HasPrefix(err.Error(), "validate config:") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, ErrWeakTokenSecret) {
		t.Fatalf("expected ErrWeakTokenSecret, got %v", err)
	}
	if got := configFailureClass(err); got != "secret" {
		t.Fatalf("class=%q want secret", got)
	}
}

func TestLoadUnreadableFileIsParseError(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("geo_lookup_timeout: [\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	_, err := Load()
	if err == nil {
		t.Fatal("expected parse error")
	}
	if got := configFailureClass(err); got != "parse" {
		t.Fatalf("class=%q want parse (err=%v)", got, err)
	}
}

func TestLoadMissingFileIsFileError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()
	if err == nil {
		t.Fatal("expected missing file error")
	}
	if got := configFailureClass(err); got != "file" {
		t.Fatalf("class=%q want file (err=%v)", got, err)
	}
}

func TestValidateNonPositiveDurationsAndRates(t *testing.T) {
	cfg := defaults()
	cfg.DatabaseURL = "sqlite://file::memory:"
	cfg.TokenSecret = testSecret
	cfg.NotifyTimeout = 0
	cfg.LoginRateLimitRPM = -1

	err := cfg.Validate()
	if !errors.Is(err, ErrNonPositiveDuration) || !errors.Is(err, ErrNonPositiveRate) {
		t.Fatalf("expected duration and rate errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "NOTIFY_TIMEOUT") {
		t.Fatalf("error must name the field: %v", err)
	}
	if got := configFailureClass(err); got != "duration" {
		t.Fatalf("class=%q want duration", got)
	}
}

func TestValidateDiscordLoginNeedsFullCredentials(t *testing.T) {
	cfg := defaults()
	cfg.DatabaseURL = "sqlite://file::memory:"
	cfg.TokenSecret = testSecret
	cfg.DiscordClientID = "client"
	if err := cfg.Validate(); !errors.Is(err, ErrIncompleteDiscord) {
		t.Fatalf("expected ErrIncompleteDiscord, got %v", err)
	}
	cfg.DiscordClientSecret = "secret"
	cfg.DiscordRedirectURL = "http://localhost/callback"
	cfg.DiscordGuildID = "guild"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}
