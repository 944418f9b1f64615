package detection

import (
	"context"
	"log/slog"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"

	"golang.org/x/sync/errgroup"
)

type Engine struct {
	rules   []Rule
	history History
	logger  *slog.Logger
}

func NewEngine(history History, logger *slog.Logger, rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{rules: rules, history: history, logger: logger}
}

// Evaluate runs every enabled rule concurrently and returns the candidates
// in rule order. A rule that fails is logged and skipped.
func (e *Engine) Evaluate(ctx context.Context, ev Event, settings domain.NotificationSettings) []Candidate {
	results := make([]*Candidate, len(e.rules))
	var g errgroup.Group
	for i, rule := range e.rules {
		if !rule.Enabled(settings) {
			continue
		}
		g.Go(func() error {
			c, err := rule.Evaluate(ctx, ev, e.history, settings)
			if err != nil {
				e.logger.WarnContext(ctx, "detection rule failed",
					"rule", rule.Type(),
					"member_id", ev.MemberID,
					"session_id", ev.SessionID,
					"error", err,
				)
				observability.RecordRuleEvaluation(ctx, string(rule.Type()), "error")
				return nil
			}
			outcome := "quiet"
			if c != nil {
				outcome = "fired"
			}
			observability.RecordRuleEvaluation(ctx, string(rule.Type()), outcome)
			results[i] = c
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Candidate, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}
