// Package service wraps the forecast provider with a cache-aside read path.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/cache"
	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// ForecastService serves provider forecasts, from cache when it can.
type ForecastService struct {
	client client.ForecastClient
	cache  cache.Cache
	ttl    time.Duration
}

// NewForecastService returns a service that caches successful fetches for ttl.
// A nil cache or non-positive ttl disables caching, so every call reaches the provider.
func NewForecastService(c client.ForecastClient, store cache.Cache, ttl time.Duration) *ForecastService {
	if ttl <= 0 {
		store = nil
	}
	return &ForecastService{client: c, cache: store, ttl: ttl}
}

// GetForecast returns the provider payload for city. Cache errors are logged and counted
// but never fail the call. Fetch errors keep the *client.FetchError in the chain.
func (s *ForecastService) GetForecast(ctx context.Context, city string) (models.ForecastResponse, error) {
	city = strings.TrimSpace(city)
	key := normalizeCity(city)
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			observability.CacheErrorsTotal.WithLabelValues("get").Inc()
			logger.Warn("cache get failed", zap.String("city", key), zap.Error(err))
		case ok:
			observability.CacheHitsTotal.WithLabelValues("forecast").Inc()
			logger.Debug("forecast served", zap.String("city", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
			return cached, nil
		}
		logger.Debug("cache miss, fetching upstream", zap.String("city", key))
	}

	resp, err := s.fetchAndStore(ctx, city, key)
	if err != nil {
		return models.ForecastResponse{}, err
	}
	logger.Debug("forecast served", zap.String("city", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return resp, nil
}

// Refresh fetches city from the provider and overwrites the cached copy. Used by cache warming.
func (s *ForecastService) Refresh(ctx context.Context, city string) error {
	city = strings.TrimSpace(city)
	_, err := s.fetchAndStore(ctx, city, normalizeCity(city))
	return err
}

// fetchAndStore asks the provider for city as typed and caches the result under key.
func (s *ForecastService) fetchAndStore(ctx context.Context, city, key string) (models.ForecastResponse, error) {
	resp, err := s.client.GetForecast(ctx, city)
	if err != nil {
		return models.ForecastResponse{}, fmt.Errorf("fetch forecast for %s: %w", city, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			observability.CacheErrorsTotal.WithLabelValues("set").Inc()
			observability.LoggerFromContext(ctx).Warn("cache set failed", zap.String("city", key), zap.Error(err))
		}
	}
	return resp, nil
}

// normalizeCity gives one cache key per city regardless of case or padding.
func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
