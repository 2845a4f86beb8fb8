/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("window limit is enforced", func(t *testing.T) {
		limiter, err := NewSlidingWindowLimiter(PerMinute(5), 100)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			res, checkErr := limiter.Check(ctx, "tenant-1")
			require.NoError(t, checkErr)
			require.True(t, res.Allowed, "check #%d should be allowed", i+1)
			require.Equal(t, RemainingUnknown, res.Remaining)
		}

		res, err := limiter.Check(ctx, "tenant-1")
		require.NoError(t, err)
		require.False(t, res.Allowed)
		require.Greater(t, res.RetryAfter, time.Duration(0))
		require.LessOrEqual(t, res.RetryAfter, time.Minute)
	})

	t.Run("keys do not interfere", func(t *testing.T) {
		limiter, err := NewSlidingWindowLimiter(PerMinute(1), 100)
		require.NoError(t, err)

		res, err := limiter.Check(ctx, "a")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		res, err = limiter.Check(ctx, "a")
		require.NoError(t, err)
		require.False(t, res.Allowed)

		res, err = limiter.Check(ctx, "b")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	})

	t.Run("zero maxKeys shares a single window", func(t *testing.T) {
		limiter, err := NewSlidingWindowLimiter(PerMinute(1), 0)
		require.NoError(t, err)

		res, err := limiter.Check(ctx, "a")
		require.NoError(t, err)
		require.True(t, res.Allowed)
		res, err = limiter.Check(ctx, "b")
		require.NoError(t, err)
		require.False(t, res.Allowed)
		require.Equal(t, 0, limiter.KeysCount())
	})

	t.Run("invalid rate is rejected", func(t *testing.T) {
		_, err := NewSlidingWindowLimiter(Rate{}, 100)
		require.Error(t, err)
	})
}
