package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// Refresher re-fetches a city from the provider and stores it, bypassing cache reads.
// Implemented by the service layer; the interface keeps cache free of a service import.
type Refresher interface {
	Refresh(ctx context.Context, city string) error
}

// Warmer keeps a fixed list of cities hot in the cache.
type Warmer struct {
	refresher Refresher
	logger    *zap.Logger
}

func NewWarmer(refresher Refresher, logger *zap.Logger) *Warmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Warmer{refresher: refresher, logger: logger}
}

// Warm refreshes every city concurrently. Every failure is reported in the returned
// *multierror.Error; successful cities stay cached regardless.
func (w *Warmer) Warm(ctx context.Context, cities []string) error {
	if len(cities) == 0 {
		return nil
	}
	start := time.Now()
	observability.CacheWarmingTotal.Inc()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		errs   *multierror.Error
		failed int
	)
	for _, city := range cities {
		wg.Add(1)
		go func(city string) {
			defer wg.Done()
			if err := w.refresher.Refresh(ctx, city); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, fmt.Errorf("warm %s: %w", city, err))
				failed++
				mu.Unlock()
			}
		}(city)
	}
	wg.Wait()

	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("cities", len(cities)),
		zap.Int("errors", failed),
		zap.Float64("duration_seconds", duration),
	)
	if err := errs.ErrorOrNil(); err != nil {
		observability.CacheWarmingErrorsTotal.Inc()
		return err
	}
	return nil
}

// Run warms once, then every interval until ctx is done. Failures are logged, never fatal.
func (w *Warmer) Run(ctx context.Context, cities []string, interval time.Duration) {
	if err := w.Warm(ctx, cities); err != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Warm(ctx, cities); err != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
