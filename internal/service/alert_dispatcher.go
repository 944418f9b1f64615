package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/notify"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"
	"github.com/Dakheel-code/arena-run-sub001/internal/repository"
)

type Deliverer interface {
	Deliver(ctx context.Context, dest notify.Destination, m notify.Message) error
}

// AlertDispatcher persists alerts synchronously and delivers notifications in
// the background with a single attempt each.
type AlertDispatcher struct {
	alerts    repository.AlertRepository
	deliverer Deliverer
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewAlertDispatcher(alerts repository.AlertRepository, deliverer Deliverer, timeout time.Duration, logger *slog.Logger) *AlertDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertDispatcher{alerts: alerts, deliverer: deliverer, timeout: timeout, logger: logger}
}

// Emit returns the persistence error, if any. Delivery is still attempted so
// the operator hears about the finding even when the insert failed.
func (d *AlertDispatcher) Emit(ctx context.Context, alert *domain.Alert, msg notify.Message, dest notify.Destination) error {
	persistErr := d.alerts.Create(ctx, alert)
	if persistErr == nil {
		observability.RecordAlert(ctx, string(alert.Type), string(alert.Severity))
	}

	d.mu.Lock()
	if d.closed || d.deliverer == nil {
		d.mu.Unlock()
		d.logger.WarnContext(ctx, "alert delivery skipped", "type", alert.Type, "member_id", alert.MemberID)
		return wrapPersist(persistErr)
	}
	d.wg.Add(1)
	d.mu.Unlock()

	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	go func() {
		defer d.wg.Done()
		defer cancel()
		if err := d.deliverer.Deliver(deliverCtx, dest, msg); err != nil {
			d.logger.WarnContext(deliverCtx, "alert delivery failed",
				"type", alert.Type,
				"member_id", alert.MemberID,
				"error", err,
			)
		}
	}()
	return wrapPersist(persistErr)
}

// Wait stops accepting deliveries and blocks until in-flight ones finish or
// ctx is done.
func (d *AlertDispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for alert deliveries: %w", ctx.Err())
	}
}

func wrapPersist(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("persist alert: %w", err)
}
