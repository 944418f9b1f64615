package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dakheel-code/arena-run-sub001/internal/observability"

	"golang.org/x/time/rate"
)

var ErrNoChannel = errors.New("no notification channel configured")

// Chain tries channels in order and stops at the first successful delivery.
// Later channels are only attempted when earlier ones are unavailable or fail.
type Chain struct {
	channels []Channel
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewChain(limiter *rate.Limiter, logger *slog.Logger, channels ...Channel) *Chain {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{channels: channels, limiter: limiter, logger: logger}
}

func (c *Chain) Deliver(ctx context.Context, dest Destination, m Message) error {
	var errs []error
	attempted := false
	for _, ch := range c.channels {
		if !ch.Available(dest) {
			continue
		}
		attempted = true
		if err := c.limiter.Wait(ctx); err != nil {
			observability.RecordNotifyDelivery(ctx, ch.Name(), "rate_limited")
			return fmt.Errorf("wait for send slot: %w", err)
		}
		err := ch.Send(ctx, dest, m)
		if err == nil {
			observability.RecordNotifyDelivery(ctx, ch.Name(), "success")
			return nil
		}
		observability.RecordNotifyDelivery(ctx, ch.Name(), "error")
		c.logger.WarnContext(ctx, "notification channel failed", "channel", ch.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
	}
	if !attempted {
		observability.RecordNotifyDelivery(ctx, "none", "skipped")
		return ErrNoChannel
	}
	return errors.Join(errs...)
}
