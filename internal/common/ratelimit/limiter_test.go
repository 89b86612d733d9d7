package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/ratelimit"
	appErr "codearena/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiter(t *testing.T) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	rc, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("new cache failed: %v", err)
	}
	return ratelimit.NewLimiter(rc, time.Minute, time.Second), mr
}

func TestAllowWithinWindow(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := l.Allow(ctx, "k", 3, 0); err != nil {
			t.Fatalf("hit %d rejected: %v", i, err)
		}
	}
	if err := l.Allow(ctx, "k", 3, 0); !appErr.Is(err, appErr.TooManyRequests) {
		t.Fatalf("expected TooManyRequests, got %v", err)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.Allow(ctx, "k", 3, 0); err != nil {
		t.Fatalf("new window rejected: %v", err)
	}
}

func TestAllowRepairsMissingExpiry(t *testing.T) {
	l, mr := newLimiter(t)
	if err := mr.Set("k", "5"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	_ = l.Allow(context.Background(), "k", 100, 0)
	if ttl := mr.TTL("k"); ttl <= 0 {
		t.Fatalf("expected expiry to be restored, got %v", ttl)
	}
}

func TestAllowWithoutCache(t *testing.T) {
	t.Parallel()
	l := ratelimit.NewLimiter(nil, time.Minute, time.Second)
	if err := l.Allow(context.Background(), "k", 1, 0); !appErr.Is(err, appErr.ServiceUnavailable) {
		t.Fatalf("expected ServiceUnavailable, got %v", err)
	}
	if err := l.Allow(context.Background(), "k", 0, 0); !appErr.Is(err, appErr.ServiceUnavailable) {
		t.Fatalf("missing cache must be reported first, got %v", err)
	}
}
