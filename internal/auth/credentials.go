package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoCredential is returned when no bearer credential can be produced.
var ErrNoCredential = errors.New("no credential available")

// CredentialSource supplies the bearer credential attached to backend calls.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticCredentials always returns the same token. An empty token is treated as missing.
type StaticCredentials string

func (s StaticCredentials) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrNoCredential
	}
	return string(s), nil
}

// RequestCredentials prefers the bearer captured from the incoming request
// and falls back to Fallback when the request carried none.
type RequestCredentials struct {
	Fallback CredentialSource
}

func (r RequestCredentials) Token(ctx context.Context) (string, error) {
	if token := GetBearerToken(ctx); token != "" {
		return token, nil
	}
	if r.Fallback == nil {
		return "", ErrNoCredential
	}
	return r.Fallback.Token(ctx)
}

// ServiceTokenSigner mints short-lived HS256 tokens identifying this service.
type ServiceTokenSigner struct {
	secretKey []byte
	subject   string
	ttl       time.Duration
	now       func() time.Time
}

func NewServiceTokenSigner(secretKey []byte, subject string, ttl time.Duration) *ServiceTokenSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ServiceTokenSigner{
		secretKey: secretKey,
		subject:   subject,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *ServiceTokenSigner) Token(ctx context.Context) (string, error) {
	if len(s.secretKey) == 0 {
		return "", ErrNoCredential
	}

	issuedAt := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   s.subject,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return tokenString, nil
}

// Validate parses a token minted by this signer and returns its claims.
func (s *ServiceTokenSigner) Validate(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
