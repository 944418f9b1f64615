package smoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Dakheel-code/arena-run-sub001/internal/tools/common"
	"github.com/Dakheel-code/arena-run-sub001/internal/tools/loadgen"
	"github.com/Dakheel-code/arena-run-sub001/internal/tools/ui"
)

type options struct {
	baseURL  string
	token    string
	subject  string
	duration time.Duration
	rps      int
	ci       bool
}

func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Check readiness, identity and the playback path of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "smoke check", func(ctx context.Context) ([]string, error) {
				return check(ctx, opts)
			})
			if opts.ci {
				if code := common.PrintCIResult("smoke check", details, err); code != 0 {
					os.Exit(4)
				}
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("ARENA_TOKEN"), "bearer token (defaults to $ARENA_TOKEN)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "member id carried by the token, used for ingest traffic")
	cmd.Flags().DurationVar(&opts.duration, "duration", 3*time.Second, "traffic burst length")
	cmd.Flags().IntVar(&opts.rps, "rps", 10, "traffic rate")
	cmd.Flags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	return cmd
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

func check(ctx context.Context, opts *options) ([]string, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	base := strings.TrimRight(opts.baseURL, "/")
	var details []string

	if _, err := get(ctx, client, base+"/health/ready", ""); err != nil {
		return details, fmt.Errorf("readiness: %w", err)
	}
	details = append(details, "readiness: ok")

	body, err := get(ctx, client, base+"/api/v1/me", opts.token)
	if err != nil {
		return details, fmt.Errorf("identity: %w", err)
	}
	var me struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &me); err != nil {
		return details, fmt.Errorf("decode identity: %w", err)
	}
	details = append(details, "identity: "+me.Data.ID)
	subject := opts.subject
	if subject == "" {
		subject = me.Data.ID
	}

	res, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL:     base,
		Token:       opts.token,
		Subject:     subject,
		Profile:     "mixed",
		Duration:    opts.duration,
		RPS:         opts.rps,
		Concurrency: 2,
		Seed:        42,
	})
	if err != nil {
		return details, err
	}
	details = append(details, fmt.Sprintf("traffic total=%d failures=%d", res.TotalRequests, res.Failures))
	if res.TotalRequests == 0 || res.Failures > 0 {
		return details, fmt.Errorf("playback path unhealthy: %v", res.ByStatusClass)
	}
	return details, nil
}

func get(ctx context.Context, client *http.Client, url, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s: %s", url, resp.Status)
	}
	return body, nil
}
