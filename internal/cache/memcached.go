package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

const (
	keyPrefix = "forecast:"

	// memcached treats larger expirations as absolute unix timestamps.
	maxRelativeExpiration = 30 * 24 * time.Hour
)

// MemcachedCache stores JSON-encoded forecasts in memcached.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache takes a comma-separated server list ("host1:11211,host2:11211").
// Zero timeout or maxIdleConns keep the gomemcache defaults.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		return nil, errors.New("memcached: no server addresses")
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// memcacheKey escapes the city; memcached keys may not contain spaces.
func memcacheKey(k string) string {
	return keyPrefix + url.QueryEscape(k)
}

// memcacheExpiration converts ttl to whole seconds within memcached's relative range.
func memcacheExpiration(ttl time.Duration) int32 {
	if ttl > maxRelativeExpiration {
		ttl = maxRelativeExpiration
	}
	sec := int32(ttl / time.Second)
	if sec < 1 {
		sec = 1
	}
	return sec
}

func (c *MemcachedCache) Get(ctx context.Context, key string) (models.ForecastResponse, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.ForecastResponse{}, false, err
	}
	item, err := c.client.Get(memcacheKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return models.ForecastResponse{}, false, nil
	}
	if err != nil {
		return models.ForecastResponse{}, false, fmt.Errorf("memcached get: %w", err)
	}
	var resp models.ForecastResponse
	if err := json.Unmarshal(item.Value, &resp); err != nil {
		return models.ForecastResponse{}, false, fmt.Errorf("memcached decode: %w", err)
	}
	return resp, true, nil
}

// Set is a no-op for a non-positive ttl.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.ForecastResponse, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("memcached encode: %w", err)
	}
	if err := c.client.Set(&memcache.Item{
		Key:        memcacheKey(key),
		Value:      raw,
		Expiration: memcacheExpiration(ttl),
	}); err != nil {
		return fmt.Errorf("memcached set: %w", err)
	}
	return nil
}

// Ping checks every configured server. Used by the health check.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
