package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type CheckResult struct {
	Name       string `json:"name"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner runs every checker in parallel with a per-check timeout and
// caches the verdict for cacheTTL so probes cannot hammer the backends.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker

	mu       sync.Mutex
	cachedAt time.Time
	ready    bool
	results  []CheckResult
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cacheTTL > 0 && !p.cachedAt.IsZero() && time.Since(p.cachedAt) < p.cacheTTL {
		return p.ready, p.results
	}

	results := make([]CheckResult, len(p.checkers))
	var wg sync.WaitGroup
	for i, c := range p.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()
			start := time.Now()
			res := c.Check(checkCtx)
			res.DurationMS = time.Since(start).Milliseconds()
			results[i] = res
		}()
	}
	wg.Wait()

	ready := true
	for _, r := range results {
		if !r.Healthy {
			ready = false
		}
	}
	p.ready, p.results, p.cachedAt = ready, results, time.Now()
	return ready, results
}

type DBChecker struct{ db *gorm.DB }

func NewDBChecker(db *gorm.DB) *DBChecker { return &DBChecker{db: db} }

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	return result("db", err)
}

type RedisChecker struct{ client redis.UniversalClient }

func NewRedisChecker(client redis.UniversalClient) *RedisChecker { return &RedisChecker{client: client} }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	return result("redis", c.client.Ping(ctx).Err())
}

func result(name string, err error) CheckResult {
	if err != nil {
		return CheckResult{Name: name, Healthy: false, Error: err.Error()}
	}
	return CheckResult{Name: name, Healthy: true}
}
