// Package auth verifies HS256 access tokens issued by the account service.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"codearena/internal/common/cache"
	appErr "codearena/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const revokedTokensKey = "auth:revoked_tokens"

// Identity is the caller described by a verified token.
type Identity struct {
	UserID string
	Role   string
}

// Config configures a Verifier.
type Config struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
	// RedisTimeout bounds the revocation lookup.
	RedisTimeout time.Duration `yaml:"redisTimeout"`
	// LocalTTL is how long a positive revocation result is cached in process.
	LocalTTL time.Duration `yaml:"localTTL"`
}

// Verifier parses tokens and checks revocation.
type Verifier struct {
	secret       []byte
	issuer       string
	revoked      cache.SetOps
	local        *cache.LRU[bool]
	redisTimeout time.Duration
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewVerifier creates a verifier. revoked may be nil to disable revocation checks.
func NewVerifier(cfg Config, revoked cache.SetOps) *Verifier {
	if cfg.RedisTimeout <= 0 {
		cfg.RedisTimeout = 200 * time.Millisecond
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = time.Minute
	}
	return &Verifier{
		secret:       []byte(cfg.Secret),
		issuer:       cfg.Issuer,
		revoked:      revoked,
		local:        cache.NewLRU[bool](4096, cfg.LocalTTL),
		redisTimeout: cfg.RedisTimeout,
	}
}

// Verify returns the identity carried by raw.
func (v *Verifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, appErr.New(appErr.TokenInvalid)
	}
	claims, err := v.parseToken(raw)
	if err != nil {
		return Identity{}, err
	}
	if v.revoked != nil {
		revoked, err := v.isRevoked(ctx, hashToken(raw))
		if err != nil {
			return Identity{}, appErr.Wrap(err, appErr.ServiceUnavailable)
		}
		if revoked {
			return Identity{}, appErr.New(appErr.TokenInvalid).WithMessage("token has been revoked")
		}
	}
	return Identity{UserID: claims.Subject, Role: claims.Role}, nil
}

// Revoke marks raw as revoked.
func (v *Verifier) Revoke(ctx context.Context, raw string) error {
	if v.revoked == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("token revocation is not configured")
	}
	hash := hashToken(raw)
	if err := v.revoked.SAdd(ctx, revokedTokensKey, hash); err != nil {
		return appErr.Wrap(err, appErr.CacheError)
	}
	v.local.Set(hash, true)
	return nil
}

func (v *Verifier) isRevoked(ctx context.Context, hash string) (bool, error) {
	if val, ok := v.local.Get(hash); ok {
		return val, nil
	}
	ctxCache, cancel := context.WithTimeout(ctx, v.redisTimeout)
	defer cancel()
	revoked, err := v.revoked.SIsMember(ctxCache, revokedTokensKey, hash)
	if err != nil {
		return false, err
	}
	if revoked {
		v.local.Set(hash, true)
	}
	return revoked, nil
}

func (v *Verifier) parseToken(raw string) (*tokenClaims, error) {
	if len(v.secret) == 0 {
		return nil, appErr.New(appErr.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErr.New(appErr.TokenExpired)
		}
		return nil, appErr.New(appErr.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, appErr.New(appErr.TokenInvalid)
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, appErr.New(appErr.TokenInvalid)
	}
	if claims.TokenType != "access" || strings.TrimSpace(claims.Subject) == "" {
		return nil, appErr.New(appErr.TokenInvalid)
	}
	return claims, nil
}

// ExtractBearerToken returns the token of an "Authorization: Bearer <token>" header.
func ExtractBearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
