package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "geo_lookup"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, ip string) (Location, bool, error) {
	if c.client == nil {
		return Location{}, false, nil
	}
	raw, err := c.client.Get(ctx, c.key(ip)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Location{}, false, nil
	}
	if err != nil {
		return Location{}, false, err
	}
	var loc Location
	if err := json.Unmarshal(raw, &loc); err != nil {
		// A corrupt entry is treated as a miss and overwritten by the next lookup.
		return Location{}, false, nil
	}
	return loc, true, nil
}

func (c *RedisCache) Set(ctx context.Context, ip string, loc Location, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}
	return c.client.Set(ctx, c.key(ip), raw, ttl).Err()
}

func (c *RedisCache) key(ip string) string {
	return fmt.Sprintf("%s:ip:%s", c.prefix, ip)
}
