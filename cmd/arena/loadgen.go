package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dakheel-code/arena-run-sub001/internal/tools/common"
	"github.com/Dakheel-code/arena-run-sub001/internal/tools/loadgen"
	"github.com/Dakheel-code/arena-run-sub001/internal/tools/ui"
)

func newLoadgenCommand() *cobra.Command {
	cfg := loadgen.Config{}
	var ci bool
	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Generate playback traffic against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			fn := func(ctx context.Context) ([]string, error) {
				res, err := loadgen.Run(ctx, cfg)
				if err != nil {
					return nil, err
				}
				return summarize(res), nil
			}
			title := "loadgen " + cfg.Profile
			if ci {
				details, err := fn(cmd.Context())
				if common.PrintCIResult(title, details, err) != 0 {
					os.Exit(4)
				}
				return nil
			}
			_, err := ui.Run(title, fn)
			return err
		},
	}
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&cfg.Token, "token", os.Getenv("ARENA_TOKEN"), "bearer token (defaults to $ARENA_TOKEN)")
	cmd.Flags().StringVar(&cfg.Subject, "subject", "", "member id used for ingest traffic")
	cmd.Flags().StringVar(&cfg.Profile, "profile", "mixed", "playback, ingest or mixed")
	cmd.Flags().DurationVar(&cfg.Duration, "duration", 10*time.Second, "run length")
	cmd.Flags().IntVar(&cfg.RPS, "rps", 10, "requests per second")
	cmd.Flags().IntVar(&cfg.Concurrency, "concurrency", 4, "parallel workers")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", 42, "video selection seed")
	cmd.Flags().BoolVar(&ci, "ci", false, "non-interactive machine-readable output")
	return cmd
}

func summarize(res loadgen.Result) []string {
	out := []string{
		fmt.Sprintf("total=%d failures=%d elapsed=%s", res.TotalRequests, res.Failures, res.Elapsed.Round(time.Millisecond)),
	}
	classes := make([]string, 0, len(res.ByStatusClass))
	for c := range res.ByStatusClass {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	for _, c := range classes {
		out = append(out, fmt.Sprintf("%s=%d", c, res.ByStatusClass[c]))
	}
	return out
}
