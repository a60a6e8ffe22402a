package middleware

import (
	"net/http"
	"strings"

	"infinite-experiment/reconboard/internal/auth"
)

// BearerCapture stores the caller's bearer token in the request context so
// backend calls made on the caller's behalf can forward it. Requests without
// one fall through to the configured fallback credential.
func BearerCapture(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			token = strings.TrimSpace(token)
			if token != "" {
				r = r.WithContext(auth.SetBearerToken(r.Context(), token))
			}
		}
		next.ServeHTTP(w, r)
	})
}
