package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoTokenSecret is returned when the gateway runs without a shared secret
var ErrNoTokenSecret = errors.New("token secret is not configured")

// HMACValidator validates HS256 tokens signed with a shared secret
type HMACValidator struct {
	secret []byte
	parser *jwt.Parser
}

// NewHMACValidator creates a validator for secret. An empty secret yields a
// validator that rejects every token.
func NewHMACValidator(secret string) *HMACValidator {
	return &HMACValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// ValidateToken parses and verifies token
func (v *HMACValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrNoTokenSecret
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	return claims, nil
}

// IssueToken signs a token for username valid for ttl
func IssueToken(secret, username, session string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoTokenSecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Session: session,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
