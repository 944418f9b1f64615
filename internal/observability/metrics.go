package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Dakheel-code/arena-run-sub001/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "arena-run"

type AppMetrics struct {
	authLoginCounter      metric.Int64Counter
	tokenValidationCount  metric.Int64Counter
	repositoryOpCounter   metric.Int64Counter
	sessionEventCounter   metric.Int64Counter
	alertCounter          metric.Int64Counter
	ruleEvalCounter       metric.Int64Counter
	notifyDeliveryCounter metric.Int64Counter
	geoLookupCounter      metric.Int64Counter
	settingsUpdateCounter metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		if err := registerMetrics(mp); err != nil {
			return nil, err
		}
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)
	if err := registerMetrics(mp); err != nil {
		return nil, err
	}

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func registerMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(meterName)
	m := &AppMetrics{}
	counters := []struct {
		name string
		dst  *metric.Int64Counter
	}{
		{"auth.login.attempts", &m.authLoginCounter},
		{"auth.token.validations", &m.tokenValidationCount},
		{"repository.operations", &m.repositoryOpCounter},
		{"watch.session.events", &m.sessionEventCounter},
		{"detection.alerts", &m.alertCounter},
		{"detection.rule.evaluations", &m.ruleEvalCounter},
		{"notify.deliveries", &m.notifyDeliveryCounter},
		{"geo.lookups", &m.geoLookupCounter},
		{"admin.settings.updates", &m.settingsUpdateCounter},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name)
		if err != nil {
			return fmt.Errorf("create counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return nil
}

func current() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(provider, status string) {
	m := current()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordTokenValidation counts bearer checks as valid, invalid or missing.
func RecordTokenValidation(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.tokenValidationCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.repositoryOpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

// RecordSessionEvent counts started, progress, ended and ingested events.
func RecordSessionEvent(ctx context.Context, event, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.sessionEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}

func RecordAlert(ctx context.Context, alertType, severity string) {
	m := current()
	if m == nil {
		return
	}
	m.alertCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", alertType),
		attribute.String("severity", severity),
	))
}

// RecordRuleEvaluation counts rule runs as fired, quiet or error.
func RecordRuleEvaluation(ctx context.Context, rule, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.ruleEvalCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("rule", rule),
		attribute.String("outcome", outcome),
	))
}

func RecordNotifyDelivery(ctx context.Context, channel, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.notifyDeliveryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}

func RecordGeoLookup(ctx context.Context, outcome string) {
	m := current()
	if m == nil {
		return
	}
	m.geoLookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordSettingsUpdate(ctx context.Context, status string) {
	m := current()
	if m == nil {
		return
	}
	m.settingsUpdateCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}
