package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/reelprompt/reelprompt/internal/model"
)

const testSecret = "test-hmac-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func TestVerifier_HMAC(t *testing.T) {
	t.Parallel()

	v, err := NewVerifier(VerifierConfig{HMACSecret: testSecret, Issuer: "reelprompt", Audience: "web"})
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	valid := jwt.MapClaims{
		"sub":   "uid-1",
		"email": "ada@example.com",
		"name":  "Ada",
		"iss":   "reelprompt",
		"aud":   "web",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name    string
		token   func() string
		wantUID string
		wantErr error
	}{
		{"valid", func() string { return signToken(t, testSecret, valid) }, "uid-1", nil},
		{"empty", func() string { return "  " }, "", ErrMissingToken},
		{"wrong secret", func() string { return signToken(t, "other", valid) }, "", ErrInvalidToken},
		{"expired", func() string {
			c := cloneClaims(valid)
			c["exp"] = time.Now().Add(-time.Hour).Unix()
			return signToken(t, testSecret, c)
		}, "", ErrInvalidToken},
		{"no exp", func() string {
			c := cloneClaims(valid)
			delete(c, "exp")
			return signToken(t, testSecret, c)
		}, "", ErrInvalidToken},
		{"wrong audience", func() string {
			c := cloneClaims(valid)
			c["aud"] = "mobile"
			return signToken(t, testSecret, c)
		}, "", ErrInvalidToken},
		{"missing sub", func() string {
			c := cloneClaims(valid)
			delete(c, "sub")
			return signToken(t, testSecret, c)
		}, "", ErrInvalidToken},
		{"garbage", func() string { return "not.a.jwt" }, "", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, err := v.Verify(tt.token())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if id.UID != tt.wantUID || id.Email != "ada@example.com" || id.DisplayName != "Ada" {
				t.Errorf("Verify() identity = %+v", id)
			}
		})
	}
}

func TestNewVerifier_RequiresKeySource(t *testing.T) {
	t.Parallel()

	if _, err := NewVerifier(VerifierConfig{}); !errors.Is(err, ErrNoKeySource) {
		t.Errorf("NewVerifier() error = %v, want ErrNoKeySource", err)
	}
}

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || UserIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no identity")
	}

	ctx = ContextWithIdentity(ctx, &model.Identity{UID: "uid-1"})
	if got := UserIDFromContext(ctx); got != "uid-1" {
		t.Errorf("UserIDFromContext() = %q, want uid-1", got)
	}
}

func cloneClaims(c jwt.MapClaims) jwt.MapClaims {
	out := make(jwt.MapClaims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
