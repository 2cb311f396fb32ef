package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testCfg = JWTConfig{
	Secret: []byte("this-is-a-test-secret-key-32-bytes!"),
	Issuer: "supportflow-test",
}

func TestIssueToken(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		token, err := IssueToken(testCfg, "helpdesk", ScopeSubmit, ScopeRead)
		if err != nil {
			t.Fatalf("IssueToken() error = %v", err)
		}

		claims, err := VerifyToken(testCfg, token)
		if err != nil {
			t.Fatalf("VerifyToken() error = %v", err)
		}
		if claims.Subject != "helpdesk" {
			t.Errorf("Subject = %q, want %q", claims.Subject, "helpdesk")
		}
		if claims.Issuer != "supportflow-test" {
			t.Errorf("Issuer = %q", claims.Issuer)
		}
		if !claims.HasScope(ScopeSubmit) || !claims.HasScope(ScopeRead) || claims.HasScope(ScopeResume) {
			t.Errorf("Scopes = %v", claims.Scopes)
		}
		if claims.ID == "" {
			t.Error("token has no ID")
		}
	})

	t.Run("unique IDs", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 20; i++ {
			token, err := IssueToken(testCfg, "x", ScopeRead)
			if err != nil {
				t.Fatal(err)
			}
			claims, err := VerifyToken(testCfg, token)
			if err != nil {
				t.Fatal(err)
			}
			if seen[claims.ID] {
				t.Fatalf("duplicate token ID %q", claims.ID)
			}
			seen[claims.ID] = true
		}
	})

	t.Run("secret too short", func(t *testing.T) {
		_, err := IssueToken(JWTConfig{Secret: []byte("short")}, "x", ScopeRead)
		if !errors.Is(err, ErrSecretTooShort) {
			t.Errorf("error = %v, want ErrSecretTooShort", err)
		}
	})

	t.Run("unknown scope", func(t *testing.T) {
		_, err := IssueToken(testCfg, "x", Scope("admin"))
		if !errors.Is(err, ErrUnknownScope) {
			t.Errorf("error = %v, want ErrUnknownScope", err)
		}
	})

	t.Run("default ttl", func(t *testing.T) {
		token, _ := IssueToken(testCfg, "x", ScopeRead)
		claims, err := VerifyToken(testCfg, token)
		if err != nil {
			t.Fatal(err)
		}
		ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
		if ttl != DefaultTokenTTL {
			t.Errorf("ttl = %v, want %v", ttl, DefaultTokenTTL)
		}
	})
}

func TestVerifyToken(t *testing.T) {
	valid, err := IssueToken(testCfg, "x", ScopeRead)
	if err != nil {
		t.Fatal(err)
	}

	expired := func() string {
		past := time.Now().Add(-2 * time.Hour)
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(past),
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Hour)),
		}}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testCfg.Secret)
		if err != nil {
			t.Fatal(err)
		}
		return s
	}()

	tests := []struct {
		name    string
		cfg     JWTConfig
		token   string
		wantErr error
	}{
		{"valid", testCfg, valid, nil},
		{"garbage", testCfg, "not.a.token", ErrInvalidToken},
		{"wrong secret", JWTConfig{Secret: []byte("another-secret-that-is-32-bytes-long"), Issuer: testCfg.Issuer}, valid, ErrInvalidToken},
		{"wrong issuer", JWTConfig{Secret: testCfg.Secret, Issuer: "someone-else"}, valid, ErrInvalidToken},
		{"expired", testCfg, expired, ErrTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tt.cfg, tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("VerifyToken() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClaims_Require(t *testing.T) {
	c := &Claims{Scopes: []Scope{ScopeRead}}
	if err := c.Require(ScopeRead); err != nil {
		t.Errorf("Require(read) = %v", err)
	}
	if err := c.Require(ScopeSubmit); !errors.Is(err, ErrMissingScope) {
		t.Errorf("Require(submit) = %v, want ErrMissingScope", err)
	}
}

func TestParseScopes(t *testing.T) {
	tests := []struct {
		in      string
		want    []Scope
		wantErr bool
	}{
		{"", Scopes, false},
		{"runs:read", []Scope{ScopeRead}, false},
		{" tickets:submit , runs:read,runs:read", []Scope{ScopeSubmit, ScopeRead}, false},
		{"runs:delete", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScopes(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScopes(%q) error = %v", tt.in, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseScopes(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseScopes(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}
