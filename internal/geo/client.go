// Package geo resolves client IPs to country, city, ISP and a VPN flag
// through an ip-api compatible endpoint. Lookups are best-effort: callers get
// a degraded Location instead of an error.
package geo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/domain"
	"github.com/Dakheel-code/arena-run-sub001/internal/observability"

	json "github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

const lookupFields = "status,message,country,city,isp,proxy,hosting"

var (
	ErrLookupFailed = errors.New("geo lookup failed")
	errSkipped      = errors.New("geo lookup skipped for non-public address")
)

type Location struct {
	Country string `json:"country"`
	City    string `json:"city,omitempty"`
	ISP     string `json:"isp,omitempty"`
	IsVPN   bool   `json:"is_vpn"`
}

// Unknown is the degraded result used whenever a lookup cannot complete.
func Unknown() Location { return Location{Country: domain.UnknownCountry} }

type Resolver interface {
	Resolve(ctx context.Context, ip string) Location
}

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	// FailureThreshold consecutive upstream failures open the breaker for OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
	HTTPClient       *http.Client
}

type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
	ISP     string `json:"isp"`
	Proxy   bool   `json:"proxy"`
	Hosting bool   `json:"hosting"`
}

type Client struct {
	opts    Options
	http    *http.Client
	cache   Cache
	breaker *gobreaker.CircuitBreaker[Location]
	group   singleflight.Group
	logger  *slog.Logger
}

func NewClient(opts Options, cache Cache, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if cache == nil {
		cache = NewNoopCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{opts: opts, http: httpClient, cache: cache, logger: logger}
	threshold := opts.FailureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[Location](gobreaker.Settings{
		Name:        "geo-lookup",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Resolve never fails. Errors, timeouts and an open breaker yield Unknown().
func (c *Client) Resolve(ctx context.Context, ip string) Location {
	loc, err := c.Lookup(ctx, ip)
	if err != nil {
		if !errors.Is(err, errSkipped) {
			c.logger.WarnContext(ctx, "geo lookup degraded", "ip", ip, "error", err)
		}
		return Unknown()
	}
	return loc
}

func (c *Client) Lookup(ctx context.Context, ip string) (Location, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil || !isPublic(parsed) {
		observability.RecordGeoLookup(ctx, "skipped")
		return Location{}, errSkipped
	}
	key := parsed.String()

	if loc, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "geo cache read failed", "error", err)
	} else if ok {
		observability.RecordGeoLookup(ctx, "cache_hit")
		return loc, nil
	}

	// The shared call outlives any single caller's cancellation but stays time-boxed.
	// It is also the only cache writer for this key.
	ch := c.group.DoChan(key, func() (any, error) {
		detached := context.WithoutCancel(ctx)
		fetchCtx, cancel := context.WithTimeout(detached, c.opts.Timeout)
		defer cancel()
		loc, err := c.breaker.Execute(func() (Location, error) {
			return c.fetch(fetchCtx, key)
		})
		if err != nil {
			return loc, err
		}
		setCtx, cancelSet := context.WithTimeout(detached, c.opts.Timeout)
		defer cancelSet()
		if err := c.cache.Set(setCtx, key, loc, c.opts.CacheTTL); err != nil {
			c.logger.WarnContext(ctx, "geo cache write failed", "error", err)
		}
		return loc, nil
	})

	waitCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	select {
	case <-waitCtx.Done():
		observability.RecordGeoLookup(ctx, "timeout")
		return Location{}, fmt.Errorf("%w: %w", ErrLookupFailed, waitCtx.Err())
	case res := <-ch:
		if res.Err != nil {
			outcome := "error"
			if errors.Is(res.Err, gobreaker.ErrOpenState) || errors.Is(res.Err, gobreaker.ErrTooManyRequests) {
				outcome = "breaker_open"
			}
			observability.RecordGeoLookup(ctx, outcome)
			return Location{}, fmt.Errorf("%w: %w", ErrLookupFailed, res.Err)
		}
		observability.RecordGeoLookup(ctx, "success")
		return res.Val.(Location), nil
	}
}

func (c *Client) fetch(ctx context.Context, ip string) (Location, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=%s", c.opts.BaseURL, url.PathEscape(ip), lookupFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geo upstream returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Location{}, err
	}
	var out ipAPIResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Location{}, fmt.Errorf("decode geo response: %w", err)
	}
	if out.Status != "success" {
		return Location{}, fmt.Errorf("geo upstream rejected lookup: %s", out.Message)
	}
	country := strings.TrimSpace(out.Country)
	if country == "" {
		country = domain.UnknownCountry
	}
	return Location{
		Country: country,
		City:    out.City,
		ISP:     out.ISP,
		IsVPN:   out.Proxy || out.Hosting,
	}, nil
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast())
}
