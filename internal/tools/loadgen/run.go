package loadgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Config struct {
	BaseURL     string
	Token       string
	Subject     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        uint64
	Videos      int
	HTTPClient  *http.Client
}

type Result struct {
	TotalRequests int
	Failures      int
	ByStatusClass map[string]int
	Elapsed       time.Duration
}

// Run drives playback traffic against a running server until Duration elapses
// or ctx is cancelled. Transport errors count as failures, not run errors.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" || cfg.Token == "" {
		return Result{}, errors.New("base url and token are required")
	}
	cfg.Profile = normalizeProfile(cfg.Profile)
	if cfg.Profile != "playback" && cfg.Profile != "ingest" && cfg.Profile != "mixed" {
		return Result{}, fmt.Errorf("unknown profile %q", cfg.Profile)
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Videos <= 0 {
		cfg.Videos = 5
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		mu  sync.Mutex
		res = Result{ByStatusClass: map[string]int{}}
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	)
	record := func(status int, err error) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		res.TotalRequests++
		if err != nil {
			res.Failures++
			res.ByStatusClass["error"]++
			return
		}
		class := classifyStatusClass(status)
		res.ByStatusClass[class]++
		if status >= 400 {
			res.Failures++
		}
	}
	nextVideo := func() string {
		mu.Lock()
		defer mu.Unlock()
		return fmt.Sprintf("video-%d", rng.IntN(cfg.Videos))
	}
	pickIngest := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return rng.IntN(2) == 0
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			c := client{cfg: cfg, wait: limiter.Wait, record: record}
			for {
				if err := limiter.Wait(gctx); err != nil {
					return nil
				}
				video := nextVideo()
				switch {
				case cfg.Profile == "ingest", cfg.Profile == "mixed" && pickIngest():
					c.ingest(gctx, video)
				default:
					c.playback(gctx, video)
				}
			}
		})
	}
	_ = g.Wait()
	res.Elapsed = time.Since(start)
	return res, nil
}

type client struct {
	cfg    Config
	wait   func(context.Context) error
	record func(int, error)
}

func (c client) playback(ctx context.Context, video string) {
	var started struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	status, err := c.do(ctx, http.MethodPost, "/api/v1/videos/"+video+"/sessions", map[string]any{"watched_seconds": 3}, &started)
	c.record(status, err)
	if err != nil || status != http.StatusCreated || started.Data.SessionID == "" {
		return
	}
	if c.wait(ctx) != nil {
		return
	}
	status, err = c.do(ctx, http.MethodPatch, "/api/v1/sessions/"+started.Data.SessionID, map[string]any{"watch_seconds": 30}, nil)
	c.record(status, err)
	if c.wait(ctx) != nil {
		return
	}
	status, err = c.do(ctx, http.MethodPost, "/api/v1/sessions/"+started.Data.SessionID+"/end", nil, nil)
	c.record(status, err)
}

func (c client) ingest(ctx context.Context, video string) {
	status, err := c.do(ctx, http.MethodPost, "/api/v1/sessions/ingest", map[string]any{
		"video_id":      video,
		"subject_id":    c.cfg.Subject,
		"watch_seconds": 15,
	}, nil)
	c.record(status, err)
}

func (c client) do(ctx context.Context, method, path string, body any, out any) (int, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, r)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", "arena-loadgen")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil && resp.StatusCode < 300 {
		_ = json.NewDecoder(resp.Body).Decode(out)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode, nil
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "mixed"
	}
	return p
}
