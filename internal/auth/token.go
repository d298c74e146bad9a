// Package auth implements the bearer credential scheme used on every A2A
// message: short-lived HS256 tokens asserting the sending agent's identity.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
)

// TokenService issues and verifies agent credentials. It implements
// schemas.Authenticator.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService builds a TokenService from configuration. The signing
// secret is mandatory; refusing to start beats running unauthenticated.
func NewTokenService(cfg config.AuthConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required (set FOREMAN_AUTH_SECRET)")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// IssueToken mints a signed credential asserting the given agent identity.
func (s *TokenService) IssueToken(agentID string) (string, error) {
	if agentID == "" {
		return "", errors.New("cannot issue a token for an empty agent id")
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   agentID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token for %s: %w", agentID, err)
	}
	return signed, nil
}

// Verify checks a presented credential and returns the agent identity it
// asserts. All failures surface as *schemas.AuthenticationError so the
// caller can log them as security events without string matching.
func (s *TokenService) Verify(token string) (string, error) {
	if token == "" {
		return "", &schemas.AuthenticationError{Reason: "missing credential"}
	}

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", &schemas.AuthenticationError{Reason: err.Error()}
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", &schemas.AuthenticationError{Reason: "credential carries no subject"}
	}
	return claims.Subject, nil
}
