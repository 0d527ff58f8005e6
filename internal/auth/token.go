package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/maddiethegm/Home-Inventory-Controller/internal/domain"
)

// DefaultTokenLifetime applies when no lifetime is configured.
const DefaultTokenLifetime = time.Hour

var (
	// ErrTokenMalformed means the token could not be parsed or lacks required claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenBadSignature means the signature does not verify against the current secret.
	ErrTokenBadSignature = errors.New("token signature invalid")
	// ErrTokenExpired means the token's expiry has elapsed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the signed payload of a session token.
type Claims struct {
	Username string `json:"Username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless HS256 session tokens.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService signs with secret; a non-positive lifetime falls back to DefaultTokenLifetime.
func NewTokenService(secret string, lifetime time.Duration, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token signing secret is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	s := &TokenService{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Lifetime reports how long issued tokens stay valid.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue signs a token asserting the identity until now+lifetime.
func (s *TokenService) Issue(id domain.Identity) (string, error) {
	if id.Username == "" {
		return "", errors.New("cannot issue a token without a username")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature then expiry and returns the embedded identity.
func (s *TokenService) Verify(tokenString string) (domain.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		// expiry is checked below: the token is still valid at exactly exp
		jwt.WithoutClaimsValidation(),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domain.Identity{}, ErrTokenBadSignature
	default:
		return domain.Identity{}, ErrTokenMalformed
	}

	if claims.Username == "" || claims.ExpiresAt == nil {
		return domain.Identity{}, ErrTokenMalformed
	}
	if s.now().After(claims.ExpiresAt.Time) {
		return domain.Identity{}, ErrTokenExpired
	}
	return domain.Identity{Username: claims.Username, Role: claims.Role}, nil
}
