package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
)

// RouterConfig configures NewRouter. Limiter and RequestTimeout apply to the lookup routes only.
type RouterConfig struct {
	Logger         *zap.Logger
	Limiter        *rate.Limiter
	RequestTimeout time.Duration
}

// NewRouter wires the public routes:
//
//	GET /weather?city=          provider payload
//	GET /forecast?city=&unit=   derived forecast view
//	GET /health
//	GET /metrics
func NewRouter(h *Handler, cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	lookups := router.NewRoute().Subrouter()
	lookups.Use(RateLimitMiddleware(cfg.Limiter))
	lookups.Use(TimeoutMiddleware(cfg.RequestTimeout))
	lookups.HandleFunc("/weather", h.GetWeather).Methods(http.MethodGet)
	lookups.HandleFunc("/forecast", h.GetForecast).Methods(http.MethodGet)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	return router
}
