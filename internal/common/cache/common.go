package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// NullCacheValue marks a cached absence so repeated misses do not reach the source.
const NullCacheValue = "$NULL$"

// GetWithCached implements cache-aside with null value caching.
//
// A cache read error or an undecodable entry falls through to fn. Cache
// write failures are ignored; the fetched value is still returned.
//
// Example:
//
//	c, err := GetWithCached(ctx, cache, "challenge:1", time.Hour, time.Minute,
//		func(c *Challenge) bool { return c == nil },
//		func(c *Challenge) string { b, _ := json.Marshal(c); return string(b) },
//		func(s string) (*Challenge, error) { var c Challenge; return &c, json.Unmarshal([]byte(s), &c) },
//		func(ctx context.Context) (*Challenge, error) { return repo.load(ctx, "1") })
func GetWithCached[T any](
	ctx context.Context,
	cache BasicOps,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) string,
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, error) {
	var zero T

	if cached, err := cache.Get(ctx, key); err == nil && cached != "" {
		if cached == NullCacheValue {
			return zero, nil
		}
		if result, err := unmarshal(cached); err == nil {
			return result, nil
		}
	}

	data, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	if isEmpty(data) {
		_ = cache.Set(ctx, key, NullCacheValue, emptyTTL)
		return zero, nil
	}

	_ = cache.Set(ctx, key, marshal(data), ttl)
	return data, nil
}

// JitterTTL shortens ttl by up to 10% so entries written together do not expire together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
