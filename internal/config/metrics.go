package config

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	loadMetricsOnce sync.Once
	loadCounter     metric.Int64Counter
)

// recordConfigLoad counts one Load attempt. Labels are bounded: profile and
// failure_class only ever take values from fixed sets.
func recordConfigLoad(ctx context.Context, profile, outcome, failureClass string) {
	loadMetricsOnce.Do(func() {
		counter, err := otel.Meter("arena-run/config").Int64Counter(
			"arena.config.loads",
			metric.WithDescription("Configuration load attempts by profile and failure class"),
		)
		if err == nil {
			loadCounter = counter
		}
	})
	if loadCounter == nil {
		return
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", configProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("failure_class", failureClass),
	))
}

var profileAliases = map[string]string{
	"dev":         "development",
	"development": "development",
	"local":       "development",
	"test":        "test",
	"stage":       "staging",
	"staging":     "staging",
	"prod":        "production",
	"production":  "production",
}

func configProfile(appEnv string) string {
	v := strings.TrimSpace(strings.ToLower(appEnv))
	if v == "" {
		return "unknown"
	}
	if p, ok := profileAliases[v]; ok {
		return p
	}
	return "other"
}

// Checked in order; a joined validation error reports its first match.
var failureClasses = []struct {
	err   error
	class string
}{
	{ErrWeakTokenSecret, "secret"},
	{ErrMissingDatabaseURL, "database"},
	{ErrIncompleteDiscord, "discord_credentials"},
	{ErrNonPositiveDuration, "duration"},
	{ErrNonPositiveRate, "rate"},
	{ErrInvalidSamplingRatio, "sampling"},
}

func configFailureClass(err error) string {
	if err == nil {
		return "none"
	}
	for _, fc := range failureClasses {
		if errors.Is(err, fc.err) {
			return fc.class
		}
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return "file"
	}
	if strings.HasPrefix(err.Error(), "parse ") {
		return "parse"
	}
	return "load"
}
