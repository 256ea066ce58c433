package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-service/internal/observability"
	"github.com/kjstillabower/weather-forecast-service/internal/traffic"
)

func TestCorrelationIDMiddleware_GeneratesID(t *testing.T) {
	var ctxID string
	var ctxLogger *zap.Logger
	h := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = correlationID(r)
		ctxLogger, _ = r.Context().Value("logger").(*zap.Logger)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/weather", nil))

	header := w.Header().Get("X-Correlation-ID")
	if header == "" || len(header) != 36 {
		t.Errorf("X-Correlation-ID = %q, want a UUID", header)
	}
	if ctxID != header {
		t.Errorf("context correlation_id = %q, header = %q", ctxID, header)
	}
	if ctxLogger == nil {
		t.Error("request logger missing from context")
	}
}

func TestCorrelationIDMiddleware_PropagatesIncoming(t *testing.T) {
	h := CorrelationIDMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/weather", nil)
	req.Header.Set("X-Correlation-ID", "test-corr-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("X-Correlation-ID"); got != "test-corr-123" {
		t.Errorf("X-Correlation-ID = %q, want test-corr-123", got)
	}
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	f := &mockFetcher{err: upstreamErr()}
	router := NewRouter(newTestHandler(f, nil, nil), RouterConfig{})

	counter := observability.HTTPRequestsTotal.WithLabelValues("GET", "/weather", "5xx")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/weather?city=London", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("httpRequestsTotal{/weather,5xx} delta = %v, want 1", got)
	}
}

func TestRouteTemplate_Unmatched(t *testing.T) {
	if got := routeTemplate(httptest.NewRequest("GET", "/nope", nil)); got != "unmatched" {
		t.Errorf("routeTemplate() = %q, want unmatched", got)
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := TimeoutMiddleware(50*time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
		<-r.Context().Done()
		if r.Context().Err() != context.DeadlineExceeded {
			t.Errorf("ctx.Err() = %v, want DeadlineExceeded", r.Context().Err())
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/weather", nil))
	if !ok || deadline.IsZero() {
		t.Error("request context has no deadline")
	}
}

func TestTimeoutMiddleware_ZeroDisabled(t *testing.T) {
	h := TimeoutMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Error("zero timeout should not set a deadline")
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/weather", nil))
}

func TestRateLimitMiddleware_Returns429WhenExceeded(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()

	f := &mockFetcher{resp: forecastFor("2024-03-11")}
	router := NewRouter(newTestHandler(f, nil, nil), RouterConfig{Limiter: rate.NewLimiter(rate.Every(time.Hour), 2)})

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest("GET", "/weather?city=London", nil))
		codes = append(codes, last.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [200 200 429]", codes)
	}
	if body := decodeError(t, last); body.Error != "Too many requests" || body.RequestID == "" {
		t.Errorf("429 body = %+v", body)
	}
	if f.calls() != 2 {
		t.Errorf("fetcher calls = %d, want 2", f.calls())
	}
	if n := traffic.DenialCount(time.Minute); n != 1 {
		t.Errorf("DenialCount() = %d, want 1", n)
	}

	// Health is outside the limiter.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", w.Code)
	}
}

func TestRateLimitMiddleware_NilLimiterPassesThrough(t *testing.T) {
	called := false
	h := RateLimitMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/weather", nil))
	if !called {
		t.Error("nil limiter should pass requests through")
	}
}

func TestNewRouter_Routes(t *testing.T) {
	router := NewRouter(newTestHandler(&mockFetcher{resp: forecastFor("2024-03-11")}, nil, nil), RouterConfig{})

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/weather?city=London", http.StatusOK},
		{"GET", "/forecast?city=London", http.StatusOK},
		{"GET", "/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/weather/london", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
	var _ *mux.Router = router
}
