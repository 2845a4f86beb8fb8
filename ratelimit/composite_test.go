/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubLimiter struct {
	result Result
	err    error
	calls  int
}

func (l *stubLimiter) Check(_ context.Context, _ string) (Result, error) {
	l.calls++
	return l.result, l.err
}

func TestCompositeLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("all stages allow", func(t *testing.T) {
		first := &stubLimiter{result: Result{Allowed: true, Remaining: 7}}
		second := &stubLimiter{result: Result{Allowed: true, Remaining: 3}}
		limiter, err := NewCompositeLimiter(first, second)
		require.NoError(t, err)

		res, err := limiter.Check(ctx, "k")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		require.Equal(t, 3, res.Remaining, "the tightest stage determines the remaining count")
		require.Equal(t, 1, first.calls)
		require.Equal(t, 1, second.calls)
	})

	t.Run("first denial short-circuits", func(t *testing.T) {
		first := &stubLimiter{result: Result{RetryAfter: time.Second}}
		second := &stubLimiter{result: Result{Allowed: true}}
		limiter, err := NewCompositeLimiter(first, second)
		require.NoError(t, err)

		res, err := limiter.Check(ctx, "k")
		require.NoError(t, err)
		require.False(t, res.Allowed)
		require.Equal(t, time.Second, res.RetryAfter)
		require.Equal(t, 0, second.calls)
	})

	t.Run("unknown remaining is ignored in the minimum", func(t *testing.T) {
		first := &stubLimiter{result: Result{Allowed: true, Remaining: RemainingUnknown}}
		second := &stubLimiter{result: Result{Allowed: true, Remaining: 4}}
		limiter, err := NewCompositeLimiter(first, second)
		require.NoError(t, err)

		res, err := limiter.Check(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, 4, res.Remaining)
	})

	t.Run("stage error is propagated", func(t *testing.T) {
		wantErr := errors.New("stage broken")
		limiter, err := NewCompositeLimiter(&stubLimiter{err: wantErr})
		require.NoError(t, err)

		_, err = limiter.Check(ctx, "k")
		require.ErrorIs(t, err, wantErr)
	})

	t.Run("at least one stage is required", func(t *testing.T) {
		_, err := NewCompositeLimiter()
		require.Error(t, err)
	})

	t.Run("bucket shapes bursts while window caps the total", func(t *testing.T) {
		bucket, err := NewTokenBucketLimiter(PerMinute(60), 3, 100)
		require.NoError(t, err)
		window, err := NewSlidingWindowLimiter(PerMinute(5), 100)
		require.NoError(t, err)
		limiter, err := NewCompositeLimiter(bucket, window)
		require.NoError(t, err)

		allowed := 0
		for i := 0; i < 10; i++ {
			res, checkErr := limiter.Check(ctx, "k")
			require.NoError(t, checkErr)
			if res.Allowed {
				allowed++
			}
		}
		// The burst of 3 is the tighter constraint at this instant.
		require.Equal(t, 3, allowed)
	})
}
