package geo

import (
	"context"
	"sync"
	"time"
)

// Cache stores successful lookups keyed by IP.
type Cache interface {
	Get(ctx context.Context, ip string) (Location, bool, error)
	Set(ctx context.Context, ip string, loc Location, ttl time.Duration) error
}

type NoopCache struct{}

func NewNoopCache() *NoopCache { return &NoopCache{} }

func (c *NoopCache) Get(context.Context, string) (Location, bool, error) {
	return Location{}, false, nil
}

func (c *NoopCache) Set(context.Context, string, Location, time.Duration) error { return nil }

type inMemoryEntry struct {
	loc       Location
	expiresAt time.Time
}

type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]inMemoryEntry
	now     func() time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]inMemoryEntry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (c *InMemoryCache) Get(_ context.Context, ip string) (Location, bool, error) {
	now := c.now()
	c.mu.RLock()
	entry, ok := c.entries[ip]
	c.mu.RUnlock()
	if !ok {
		return Location{}, false, nil
	}
	if now.After(entry.expiresAt) {
		c.mu.Lock()
		if current, ok := c.entries[ip]; ok && now.After(current.expiresAt) {
			delete(c.entries, ip)
		}
		c.mu.Unlock()
		return Location{}, false, nil
	}
	return entry.loc, true, nil
}

func (c *InMemoryCache) Set(_ context.Context, ip string, loc Location, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ip] = inMemoryEntry{loc: loc, expiresAt: c.now().Add(ttl)}
	return nil
}
