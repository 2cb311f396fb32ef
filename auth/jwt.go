package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultTokenTTL is the lifetime of API tokens when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// Scope grants access to one group of API operations.
type Scope string

// API scopes.
const (
	ScopeSubmit Scope = "tickets:submit" // POST tickets
	ScopeRead   Scope = "runs:read"      // GET runs and checkpoints
	ScopeResume Scope = "runs:resume"    // POST resume
)

// Scopes lists every defined scope.
var Scopes = []Scope{ScopeSubmit, ScopeRead, ScopeResume}

// ParseScopes parses a comma separated scope list. An empty list yields
// every scope.
func ParseScopes(s string) ([]Scope, error) {
	if strings.TrimSpace(s) == "" {
		return slices.Clone(Scopes), nil
	}
	var out []Scope
	for _, part := range strings.Split(s, ",") {
		scope := Scope(strings.TrimSpace(part))
		if !slices.Contains(Scopes, scope) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScope, part)
		}
		if !slices.Contains(out, scope) {
			out = append(out, scope)
		}
	}
	return out, nil
}

// JWTConfig holds configuration for token signing and verification.
type JWTConfig struct {
	// Secret is the HMAC signing key (must be at least 32 bytes).
	Secret []byte

	// Issuer is set on issued tokens and required on verified ones.
	Issuer string

	// TTL is the token lifetime. Defaults to DefaultTokenTTL if zero.
	TTL time.Duration
}

func (c JWTConfig) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultTokenTTL
	}
	return c.TTL
}

// Claims are the claims carried by an API token.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []Scope `json:"scp"`
}

// HasScope reports whether the token grants s.
func (c *Claims) HasScope(s Scope) bool {
	return slices.Contains(c.Scopes, s)
}

// Require returns ErrMissingScope unless the token grants s.
func (c *Claims) Require(s Scope) error {
	if !c.HasScope(s) {
		return fmt.Errorf("%w: %s", ErrMissingScope, s)
	}
	return nil
}

// IssueToken signs a token for subject granting scopes. Each token gets a
// unique ID.
func IssueToken(cfg JWTConfig, subject string, scopes ...Scope) (string, error) {
	if len(cfg.Secret) < 32 {
		return "", ErrSecretTooShort
	}
	for _, s := range scopes {
		if !slices.Contains(Scopes, s) {
			return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
		}
	}

	tokenID, err := nanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.ttl())),
			ID:        tokenID,
		},
		Scopes: scopes,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// VerifyToken parses and validates a token. Expired tokens return
// ErrTokenExpired; every other failure returns ErrInvalidToken.
func VerifyToken(cfg JWTConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cfg.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if cfg.Issuer != "" {
		issuer, err := token.Claims.GetIssuer()
		if err != nil || issuer != cfg.Issuer {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}
