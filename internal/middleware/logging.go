package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"infinite-experiment/reconboard/internal/logging"
)

type requestIDKey struct{}

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware adds a request ID to the context if not present
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logging writes one structured line per completed request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lw, r)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			endpoint = rctx.RoutePattern()
		}

		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", lw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		log := logging.WithRequest(GetRequestID(r.Context()), endpoint)
		switch {
		case lw.statusCode >= http.StatusInternalServerError:
			log.Warnw("HTTP request completed", fields...)
		default:
			log.Infow("HTTP request completed", fields...)
		}
	})
}
