package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"infinite-experiment/reconboard/internal/auth"
	"infinite-experiment/reconboard/internal/metrics"
)

func TestBearerCapture(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer", "Bearer abc", "abc"},
		{"missing", "", ""},
		{"other scheme", "Basic xyz", ""},
		{"empty bearer", "Bearer   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := BearerCapture(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.GetBearerToken(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given", seen)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, "10.0.0.9")
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.Get("/api/v1/mappings/{mappingId}/result", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/mappings/abc/result", nil))

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/v1/mappings/{mappingId}/result", "GET", "404"))
	assert.Equal(t, float64(1), got)
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/api/v1/views/{id}", NormalizeEndpoint("/api/v1/views/123e4567-e89b-12d3-a456-426614174000"))
	assert.Equal(t, "/api/v1/tasks/{id}/fields", NormalizeEndpoint("/api/v1/tasks/42/fields"))
	assert.Equal(t, "/healthCheck", NormalizeEndpoint("/healthCheck"))
}
