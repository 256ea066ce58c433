package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/cache"
	"github.com/kjstillabower/weather-forecast-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/config"
	httphandler "github.com/kjstillabower/weather-forecast-service/internal/http"
	"github.com/kjstillabower/weather-forecast-service/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/service"
)

const breakerComponent = "forecast_api"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// app is the wired service minus the listener.
type app struct {
	router     http.Handler
	warmer     *cache.Warmer
	memcached  *cache.MemcachedCache
	warmCities []string
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	observability.SetTrackedCities(cfg.TrackedCities)
	observability.RegisterOutcomeGauges(cfg.HealthDegradedWindow)

	forecastClient, err := client.NewOpenWeatherClientWithRetry(
		cfg.ProviderAPIKey,
		cfg.ProviderAPIURL,
		cfg.ProviderTimeout,
		cfg.RetryAttempts,
		cfg.RetryBaseDelay,
		cfg.RetryMaxDelay,
	)
	if err != nil {
		return nil, fmt.Errorf("forecast client: %w", err)
	}

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.HealthDegradedWindow,
		DegradedErrorPct: cfg.HealthDegradedErrorPct,
		CheckAPIKey:      cfg.HealthCheckAPIKey,
		Version:          version,
	}

	if cfg.CircuitBreakerEnabled {
		cb := circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitFailureThreshold,
			SuccessThreshold: cfg.CircuitSuccessThreshold,
			Timeout:          cfg.CircuitTimeout,
			IsFailure:        func(err error) bool { return !client.IsCityNotFound(err) },
			OnStateChange: func(from, to circuitbreaker.State) {
				observability.RecordCircuitBreakerTransition(breakerComponent, from.String(), to.String(), int(to))
				logger.Warn("circuit breaker state change",
					zap.String("component", breakerComponent),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
		forecastClient.SetCircuitBreaker(cb)
		healthConfig.CircuitState = cb.State
		observability.CircuitBreakerState.WithLabelValues(breakerComponent).Set(0)
		logger.Info("circuit breaker enabled",
			zap.Int("failure_threshold", cfg.CircuitFailureThreshold),
			zap.Duration("timeout", cfg.CircuitTimeout),
		)
	}

	if cfg.ProviderRateRPS > 0 {
		forecastClient.SetRateLimiter(rate.NewLimiter(rate.Limit(cfg.ProviderRateRPS), cfg.ProviderRateBurst))
	}

	a := &app{warmCities: cfg.WarmCities}

	var store cache.Cache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("memcached cache: %w", err)
		}
		a.memcached = mc
		store = mc
		healthConfig.CachePing = mc.Ping
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		store = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	forecastService := service.NewForecastService(forecastClient, store, cfg.CacheTTL)
	if len(cfg.WarmCities) > 0 && cfg.CacheTTL > 0 {
		a.warmer = cache.NewWarmer(forecastService, logger)
	}

	var keyChecker httphandler.APIKeyChecker
	if cfg.HealthCheckAPIKey {
		keyChecker = forecastClient
	}
	handler := httphandler.NewHandler(forecastService, keyChecker, healthConfig, logger)
	handler.SetCityLength(cfg.CityMinLength, cfg.CityMaxLength)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	a.router = httphandler.NewRouter(handler, httphandler.RouterConfig{
		Logger:         logger,
		Limiter:        limiter,
		RequestTimeout: cfg.RequestTimeout,
	})
	return a, nil
}

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("configuration loaded", zap.String("env", cfg.EnvName), zap.String("version", version))

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Fatal("startup", zap.Error(err))
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	if a.warmer != nil {
		go a.warmer.Run(bgCtx, a.warmCities, cfg.WarmInterval)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.Set(lifecycle.Serving)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.Set(lifecycle.Draining)
	bgCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := httphandler.WaitForInFlight(shutdownCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed",
			zap.Error(err),
			zap.Int64("remaining", httphandler.InFlightCount()),
		)
	}

	if a.memcached != nil {
		if err := a.memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
	if err := observability.FlushTelemetry(logger); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry flush: %v\n", err)
	}
}
