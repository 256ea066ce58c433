// Package cache stores provider forecasts keyed by normalized city.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-forecast-service/internal/models"
)

// Cache is implemented by the in-memory and memcached backends.
// Get reports (value, true, nil) on a hit and (zero, false, nil) on a miss or expiry.
type Cache interface {
	Get(ctx context.Context, key string) (models.ForecastResponse, bool, error)
	Set(ctx context.Context, key string, value models.ForecastResponse, ttl time.Duration) error
}

// Pinger is implemented by caches with a remote backend the health check can probe.
type Pinger interface {
	Ping() error
}

// InMemoryCache is a map with per-entry expiry, safe for concurrent use.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	now  func() time.Time
}

type cacheEntry struct {
	value     models.ForecastResponse
	expiresAt time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
		now:  time.Now,
	}
}

// Get removes the entry when it has expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.ForecastResponse, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return models.ForecastResponse{}, false, nil
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := c.data[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return models.ForecastResponse{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores value until ttl elapses. A non-positive ttl stores nothing.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.ForecastResponse, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.data[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
