package auth

import (
	"context"
)

type contextKey string

var bearerTokenKey contextKey = "bearer_token"

// SetBearerToken stores the caller's bearer credential for forwarding to the backend.
func SetBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey, token)
}

func GetBearerToken(ctx context.Context) string {
	if token, ok := ctx.Value(bearerTokenKey).(string); ok {
		return token
	}
	return ""
}
