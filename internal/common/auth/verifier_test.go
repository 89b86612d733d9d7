package auth_test

import (
	"context"
	"testing"
	"time"

	"codearena/internal/common/auth"
	"codearena/internal/common/cache"
	appErr "codearena/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return token
}

func accessClaims(exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{"sub": "42", "role": "user", "typ": "access", "iss": "codearena", "exp": exp.Unix()}
}

func TestVerifyAcceptsAccessToken(t *testing.T) {
	t.Parallel()
	v := auth.NewVerifier(auth.Config{Secret: secret, Issuer: "codearena"}, nil)
	id, err := v.Verify(context.Background(), sign(t, secret, accessClaims(time.Now().Add(time.Hour))))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if id.UserID != "42" || id.Role != "user" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()
	v := auth.NewVerifier(auth.Config{Secret: secret, Issuer: "codearena"}, nil)
	refresh := accessClaims(time.Now().Add(time.Hour))
	refresh["typ"] = "refresh"
	otherIssuer := accessClaims(time.Now().Add(time.Hour))
	otherIssuer["iss"] = "elsewhere"

	cases := []struct {
		name  string
		token string
		code  appErr.ErrorCode
	}{
		{"empty", "", appErr.TokenInvalid},
		{"garbage", "not-a-token", appErr.TokenInvalid},
		{"wrong key", sign(t, "other", accessClaims(time.Now().Add(time.Hour))), appErr.TokenInvalid},
		{"expired", sign(t, secret, accessClaims(time.Now().Add(-time.Hour))), appErr.TokenExpired},
		{"refresh token", sign(t, secret, refresh), appErr.TokenInvalid},
		{"issuer", sign(t, secret, otherIssuer), appErr.TokenInvalid},
	}
	for _, tc := range cases {
		if _, err := v.Verify(context.Background(), tc.token); !appErr.Is(err, tc.code) {
			t.Fatalf("%s: expected %d, got %v", tc.name, tc.code, err)
		}
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rc, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	v := auth.NewVerifier(auth.Config{Secret: secret}, rc)
	token := sign(t, secret, accessClaims(time.Now().Add(time.Hour)))
	ctx := context.Background()

	if _, err := v.Verify(ctx, token); err != nil {
		t.Fatalf("verify before revoke failed: %v", err)
	}
	if err := v.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := v.Verify(ctx, token); !appErr.Is(err, appErr.TokenInvalid) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()
	if got := auth.ExtractBearerToken("Bearer abc"); got != "abc" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := auth.ExtractBearerToken("bearer  abc "); got != "abc" {
		t.Fatalf("unexpected token: %q", got)
	}
	if got := auth.ExtractBearerToken("Basic abc"); got != "" {
		t.Fatalf("unexpected token: %q", got)
	}
}
