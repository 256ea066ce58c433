package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// ForecastClient fetches the provider's 5-day/3-hour forecast for a city.
type ForecastClient interface {
	GetForecast(ctx context.Context, city string) (models.ForecastResponse, error)
	ValidateAPIKey(ctx context.Context) error
}

// probeCity is used by ValidateAPIKey; any city the provider always knows works.
const probeCity = "London"

type OpenWeatherClient struct {
	apiKey         string
	apiURL         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
	limiter        *rate.Limiter
}

// NewOpenWeatherClient returns a client that makes exactly one provider call per fetch.
func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	return NewOpenWeatherClientWithRetry(apiKey, apiURL, timeout, 1, 100*time.Millisecond, 2*time.Second)
}

// NewOpenWeatherClientWithRetry is NewOpenWeatherClient with retries for 429/5xx/network failures.
// retryAttempts counts the first call; values below 1 mean 1.
func NewOpenWeatherClientWithRetry(apiKey, apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	return &OpenWeatherClient{
		apiKey:         apiKey,
		apiURL:         apiURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker routes provider calls through cb. nil disables it.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

// SetRateLimiter throttles outbound calls; callers wait for a token. nil disables it.
func (c *OpenWeatherClient) SetRateLimiter(l *rate.Limiter) {
	c.limiter = l
}

// GetForecast returns the provider forecast unmodified, or an error wrapping *FetchError.
func (c *OpenWeatherClient) GetForecast(ctx context.Context, city string) (models.ForecastResponse, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.ForecastAPIRetriesTotal.Inc()
			select {
			case <-ctx.Done():
				return models.ForecastResponse{}, networkError(ctx.Err())
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		result, err := c.call(ctx, city)
		if err == nil {
			return result, nil
		}
		observability.ForecastAPIErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()

		lastErr = err
		if !c.isRetryable(ctx, err) {
			return models.ForecastResponse{}, err
		}
	}

	if c.retryAttempts == 1 {
		return models.ForecastResponse{}, lastErr
	}
	return models.ForecastResponse{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

// call applies the outbound limiter and circuit breaker around a single provider request.
func (c *OpenWeatherClient) call(ctx context.Context, city string) (models.ForecastResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.ForecastResponse{}, networkError(fmt.Errorf("rate limit wait: %w", err))
		}
	}
	if c.breaker == nil {
		return c.callAPI(ctx, city)
	}

	var result models.ForecastResponse
	err := c.breaker.Call(ctx, func() error {
		r, err := c.callAPI(ctx, city)
		result = r
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return models.ForecastResponse{}, networkError(err)
	}
	return result, err
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, city string) (models.ForecastResponse, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, city)
	if err != nil {
		observability.ForecastAPICallsTotal.WithLabelValues("error").Inc()
		return models.ForecastResponse{}, networkError(fmt.Errorf("build request: %w", err))
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.ForecastAPICallsTotal.WithLabelValues("error").Inc()
		observability.ForecastAPIDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return models.ForecastResponse{}, networkError(err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.ForecastAPICallsTotal.WithLabelValues(status).Inc()
	observability.ForecastAPIDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	if fe := statusError(resp.StatusCode); fe != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return models.ForecastResponse{}, fe
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.ForecastResponse{}, networkError(fmt.Errorf("read response body: %w", err))
	}

	var forecast models.ForecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return models.ForecastResponse{}, &FetchError{
			Kind:   KindProviderHTTP,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%w: parse response: %w", ErrUpstreamFailure, err),
		}
	}
	return forecast, nil
}

// isRetryable allows another attempt for 429, 5xx and transport failures, unless the
// caller's context is done or the circuit breaker rejected the call.
func (c *OpenWeatherClient) isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind {
	case KindNetworkUnreachable:
		return !errors.Is(err, circuitbreaker.ErrOpen)
	case KindProviderHTTP:
		return fe.Status == http.StatusTooManyRequests || fe.Status >= 500
	}
	return false
}

func (c *OpenWeatherClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

// buildRequest targets <apiURL>/forecast?q=<city>&appid=<key>&units=metric.
func (c *OpenWeatherClient) buildRequest(ctx context.Context, city string) (*http.Request, error) {
	endpoint, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + "/forecast"

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == 404:
		return "not_found"
	case statusCode == 429:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey probes the provider once. Used by the health check.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, probeCity)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}
	return nil
}
