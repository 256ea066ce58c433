package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-service/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-service/internal/client"
	"github.com/kjstillabower/weather-forecast-service/internal/forecast"
	"github.com/kjstillabower/weather-forecast-service/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-service/internal/models"
	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/traffic"
	"github.com/kjstillabower/weather-forecast-service/internal/validation"
)

// User-facing error texts.
const (
	msgFetchFailed  = "Unable to fetch weather data"
	msgCityNotFound = "City not found"
	msgInvalidUnit  = "Invalid unit: use C or F"
	msgRateLimited  = "Too many requests"
)

// Fetcher is implemented by service.ForecastService.
type Fetcher interface {
	GetForecast(ctx context.Context, city string) (models.ForecastResponse, error)
}

// APIKeyChecker is implemented by client.OpenWeatherClient.
type APIKeyChecker interface {
	ValidateAPIKey(ctx context.Context) error
}

// HealthConfig holds the inputs of the health decision. A nil *HealthConfig reports
// healthy unless the process is draining.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	// CheckAPIKey probes the provider on every /health call.
	CheckAPIKey bool
	// CircuitState, when set, reports the provider circuit breaker state.
	CircuitState func() circuitbreaker.State
	// CachePing, when set, is called to check cache reachability. Used with memcached.
	CachePing func() error
	Version   string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	fetcher       Fetcher
	keyChecker    APIKeyChecker
	healthConfig  *HealthConfig
	logger        *zap.Logger
	cityMinLength int
	cityMaxLength int
	now           func() time.Time

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a Handler. keyChecker may be nil when the API key probe is off.
func NewHandler(fetcher Fetcher, keyChecker APIKeyChecker, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		fetcher:       fetcher,
		keyChecker:    keyChecker,
		healthConfig:  healthConfig,
		logger:        logger,
		cityMinLength: 1,
		cityMaxLength: 100,
		now:           time.Now,
	}
}

// SetCityLength overrides the accepted city length in runes on /forecast. 0 disables a bound.
func (h *Handler) SetCityLength(min, max int) {
	h.cityMinLength = min
	h.cityMaxLength = max
}

// GetWeather handles GET /weather?city=. It relays the provider payload unchanged.
// Only a blank city is rejected; every fetch failure, unknown city included, is reported
// as one generic 500.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("city")
	city, err := validation.RequireCity(raw)
	if err != nil {
		observability.RecordForecastQuery("weather", "invalid", raw)
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.fetcher.GetForecast(r.Context(), city)
	if err != nil {
		h.recordFetchFailure(r, "weather", city, err)
		writeError(w, r, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	traffic.Record(traffic.Success)
	observability.RecordForecastQuery("weather", "success", city)
	writeJSON(w, http.StatusOK, resp)
}

// GetForecast handles GET /forecast?city=&unit=. It returns the derived forecast.View and,
// unlike /weather, tells an unknown city (404) apart from other failures (500).
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	city, err := validation.ValidateCity(q.Get("city"), h.cityMinLength, h.cityMaxLength)
	if err != nil {
		observability.RecordForecastQuery("forecast", "invalid", q.Get("city"))
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	unit, err := forecast.ParseUnit(q.Get("unit"))
	if err != nil {
		observability.RecordForecastQuery("forecast", "invalid", city)
		writeError(w, r, http.StatusBadRequest, msgInvalidUnit)
		return
	}

	resp, err := h.fetcher.GetForecast(r.Context(), city)
	if err != nil {
		h.recordFetchFailure(r, "forecast", city, err)
		if client.IsCityNotFound(err) {
			writeError(w, r, http.StatusNotFound, msgCityNotFound)
			return
		}
		writeError(w, r, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	traffic.Record(traffic.Success)
	observability.RecordForecastQuery("forecast", "success", city)

	view := forecast.BuildView(resp, unit, h.now())
	if n := len(view.Omitted); n > 0 {
		observability.ForecastDaysOmittedTotal.Add(float64(n))
		loggerFrom(r, h.logger).Debug("forecast days omitted",
			zap.String("city", city),
			zap.Strings("dates", view.Omitted),
		)
	}
	writeJSON(w, http.StatusOK, view)
}

// recordFetchFailure logs and counts a failed fetch. An unknown city is the provider
// working correctly, so it counts as a success for the health error rate.
func (h *Handler) recordFetchFailure(r *http.Request, endpoint, city string, err error) {
	logger := loggerFrom(r, h.logger)
	if client.IsCityNotFound(err) {
		traffic.Record(traffic.Success)
		observability.RecordForecastQuery(endpoint, "not_found", city)
		logger.Info("city not found", zap.String("city", city))
		return
	}
	traffic.Record(traffic.Failure)
	observability.RecordForecastQuery(endpoint, "upstream_error", city)
	logger.Warn("forecast fetch failed",
		zap.String("city", city),
		zap.String("category", string(client.CategorizeError(err))),
		zap.Error(err),
	)
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"forecastApi": "healthy"}
	if result.status == "degraded" {
		checks["forecastApi"] = "unhealthy"
	}
	version := "dev"
	if h.healthConfig != nil {
		if h.healthConfig.CachePing != nil {
			checks["cache"] = "healthy"
			if h.healthConfig.CachePing() != nil {
				checks["cache"] = "unhealthy"
			}
		}
		if h.healthConfig.Version != "" {
			version = h.healthConfig.Version
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   "weather-forecast-service",
		"version":   version,
		"checks":    checks,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus checks, in order: draining, circuit breaker, API key probe, error rate.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	cfg := h.healthConfig
	if cfg == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if cfg.CircuitState != nil && cfg.CircuitState() == circuitbreaker.StateOpen {
		return healthResult{"degraded", http.StatusServiceUnavailable, "circuit_open"}
	}
	if cfg.CheckAPIKey && h.keyChecker != nil {
		if err := h.keyChecker.ValidateAPIKey(ctx); err != nil {
			return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
		}
	}
	if cfg.DegradedWindow > 0 && cfg.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(cfg.DegradedWindow)
		if total > 0 && errs*100 >= cfg.DegradedErrorPct*total {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// writeError writes {"error": message, "requestId": correlation ID}.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message, RequestID: correlationID(r)})
}

func correlationID(r *http.Request) string {
	if id, ok := r.Context().Value("correlation_id").(string); ok {
		return id
	}
	return ""
}

// loggerFrom prefers the request-scoped logger set by CorrelationIDMiddleware.
func loggerFrom(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if l, ok := r.Context().Value("logger").(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}
