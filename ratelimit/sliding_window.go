/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/acronis/go-accelkit/lrucache"
)

// SlidingWindowLimiter implements sliding window rate limiting algorithm:
// requests are counted over a trailing interval and denied once the sum exceeds the limit.
type SlidingWindowLimiter struct {
	getLimiter func(key string) *slidingwindow.Limiter
	maxRate    Rate
	clock      Clock
	store      *keyedStore[*slidingwindow.Limiter]
}

// SlidingWindowLimiterOpts represents options for SlidingWindowLimiter.
type SlidingWindowLimiterOpts struct {
	// Clock substitutes the time source used for retry-after and TTL computations. Used in tests.
	Clock Clock

	// KeyTTL determines how long idle per-key state is retained. DefaultKeyTTL by default.
	KeyTTL time.Duration

	// MetricsCollector collects the key-store metrics. May be nil.
	MetricsCollector lrucache.MetricsCollector
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
// If maxKeys is 0, a single window is shared by all keys.
func NewSlidingWindowLimiter(maxRate Rate, maxKeys int) (*SlidingWindowLimiter, error) {
	return NewSlidingWindowLimiterWithOpts(maxRate, maxKeys, SlidingWindowLimiterOpts{})
}

// NewSlidingWindowLimiterWithOpts creates a new sliding window rate limiter
// with an ability to specify different optional parameters.
func NewSlidingWindowLimiterWithOpts(
	maxRate Rate, maxKeys int, opts SlidingWindowLimiterOpts,
) (*SlidingWindowLimiter, error) {
	if maxRate.Count <= 0 || maxRate.Duration <= 0 {
		return nil, fmt.Errorf("invalid rate %v", maxRate)
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	keyTTL := opts.KeyTTL
	if keyTTL == 0 {
		keyTTL = DefaultKeyTTL
	}

	newWindowLimiter := func() *slidingwindow.Limiter {
		lim, _ := slidingwindow.NewLimiter(
			maxRate.Duration, int64(maxRate.Count), func() (slidingwindow.Window, slidingwindow.StopFunc) {
				return slidingwindow.NewLocalWindow()
			})
		return lim
	}

	l := &SlidingWindowLimiter{maxRate: maxRate, clock: clock}

	if maxKeys == 0 {
		lim := newWindowLimiter()
		l.getLimiter = func(_ string) *slidingwindow.Limiter { return lim }
		return l, nil
	}

	store, err := newKeyedStore[*slidingwindow.Limiter](maxKeys, lrucache.Options{
		DefaultTTL: keyTTL,
		SlidingTTL: true,
		Now:        clock.Now,
	}, opts.MetricsCollector)
	if err != nil {
		return nil, fmt.Errorf("new keyed store for sliding windows: %w", err)
	}
	l.store = store
	l.getLimiter = func(key string) *slidingwindow.Limiter {
		return store.GetOrAdd(key, newWindowLimiter)
	}
	return l, nil
}

// Check checks if the request should be allowed for the key.
// Remaining is reported as RemainingUnknown: the window implementation
// does not expose its current count.
func (l *SlidingWindowLimiter) Check(_ context.Context, key string) (Result, error) {
	if l.getLimiter(key).Allow() {
		return Result{Allowed: true, Remaining: RemainingUnknown}, nil
	}
	now := l.clock.Now()
	retryAfter := now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now)
	return Result{Remaining: RemainingUnknown, RetryAfter: retryAfter}, nil
}

// KeysCount returns the number of keys with retained window state.
func (l *SlidingWindowLimiter) KeysCount() int {
	if l.store == nil {
		return 0
	}
	return l.store.Len()
}

// RemoveIdleKeys evicts per-key state that was idle for longer than KeyTTL
// and returns the number of evicted keys.
func (l *SlidingWindowLimiter) RemoveIdleKeys() int {
	if l.store == nil {
		return 0
	}
	return l.store.RemoveExpired()
}
