/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/acronis/go-accelkit/lrucache"
)

// DefaultKeyTTL determines how long per-key limiter state is retained after the last check on the key.
const DefaultKeyTTL = 10 * time.Minute

// TokenBucketLimiter implements the token bucket algorithm on top of golang.org/x/time/rate.
// A bucket of capacity maxBurst is refilled at maxRate; every admitted request consumes one token.
// Per-key buckets are created lazily on the first check and evicted after KeyTTL of idleness.
type TokenBucketLimiter struct {
	maxRate    Rate
	maxBurst   int
	refill     rate.Limit
	clock      Clock
	getLimiter func(key string) *rate.Limiter
	store      *keyedStore[*rate.Limiter]
}

// TokenBucketLimiterOpts represents options for TokenBucketLimiter.
type TokenBucketLimiterOpts struct {
	// Clock substitutes the time source used for refill and TTL computations. Used in tests.
	Clock Clock

	// KeyTTL determines how long idle per-key state is retained. DefaultKeyTTL by default.
	KeyTTL time.Duration

	// MetricsCollector collects the key-store metrics. May be nil.
	MetricsCollector lrucache.MetricsCollector
}

// NewTokenBucketLimiter creates a new token bucket rate limiter.
// If maxBurst is not positive, it defaults to maxRate.Count/10 (at least 1).
// If maxKeys is 0, a single bucket is shared by all keys.
func NewTokenBucketLimiter(maxRate Rate, maxBurst, maxKeys int) (*TokenBucketLimiter, error) {
	return NewTokenBucketLimiterWithOpts(maxRate, maxBurst, maxKeys, TokenBucketLimiterOpts{})
}

// NewTokenBucketLimiterWithOpts creates a new token bucket rate limiter
// with an ability to specify different optional parameters.
func NewTokenBucketLimiterWithOpts(
	maxRate Rate, maxBurst, maxKeys int, opts TokenBucketLimiterOpts,
) (*TokenBucketLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("invalid rate %v", maxRate)
	}
	if maxBurst <= 0 {
		maxBurst = maxRate.Count / 10
		if maxBurst == 0 {
			maxBurst = 1
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	keyTTL := opts.KeyTTL
	if keyTTL == 0 {
		keyTTL = DefaultKeyTTL
	}

	refill := rate.Limit(float64(maxRate.Count) / maxRate.Duration.Seconds())
	l := &TokenBucketLimiter{maxRate: maxRate, maxBurst: maxBurst, refill: refill, clock: clock}

	if maxKeys == 0 {
		lim := rate.NewLimiter(refill, maxBurst)
		l.getLimiter = func(_ string) *rate.Limiter { return lim }
		return l, nil
	}

	store, err := newKeyedStore[*rate.Limiter](maxKeys, lrucache.Options{
		DefaultTTL: keyTTL,
		SlidingTTL: true,
		Now:        clock.Now,
	}, opts.MetricsCollector)
	if err != nil {
		return nil, fmt.Errorf("new keyed store for token buckets: %w", err)
	}
	l.store = store
	l.getLimiter = func(key string) *rate.Limiter {
		return store.GetOrAdd(key, func() *rate.Limiter {
			return rate.NewLimiter(refill, maxBurst)
		})
	}
	return l, nil
}

// Check performs refill-then-consume atomically for the key's bucket
// (the bucket itself serializes concurrent checks on the same key)
// and returns the admission decision. It never blocks.
func (l *TokenBucketLimiter) Check(_ context.Context, key string) (Result, error) {
	lim := l.getLimiter(key)
	now := l.clock.Now()
	if lim.AllowN(now, 1) {
		return Result{Allowed: true, Remaining: int(lim.TokensAt(now))}, nil
	}
	return Result{RetryAfter: l.retryAfter(lim.TokensAt(now))}, nil
}

// retryAfter estimates the time until one full token is available again:
// ceil of the deficit divided by the refill rate, never less than a millisecond
// for a denied request.
func (l *TokenBucketLimiter) retryAfter(tokens float64) time.Duration {
	deficit := 1 - tokens
	if deficit <= 0 {
		return time.Millisecond
	}
	ms := math.Ceil(deficit / float64(l.refill) * 1000)
	return time.Duration(ms) * time.Millisecond
}

// KeysCount returns the number of keys with retained bucket state.
func (l *TokenBucketLimiter) KeysCount() int {
	if l.store == nil {
		return 0
	}
	return l.store.Len()
}

// RemoveIdleKeys evicts per-key state that was idle for longer than KeyTTL
// and returns the number of evicted keys.
func (l *TokenBucketLimiter) RemoveIdleKeys() int {
	if l.store == nil {
		return 0
	}
	return l.store.RemoveExpired()
}
