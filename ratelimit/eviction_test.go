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

	"github.com/acronis/go-accelkit/log"
	"github.com/acronis/go-accelkit/testutil"
)

func TestEvictionWorker(t *testing.T) {
	ctx := context.Background()

	clock := testutil.NewFakeClock(time.Unix(1700000000, 0))
	limiter, err := NewTokenBucketLimiterWithOpts(Rate{Count: 60, Duration: time.Minute}, 0, 100,
		TokenBucketLimiterOpts{Clock: clock, KeyTTL: time.Minute})
	require.NoError(t, err)
	require.True(t, IsAllowed(ctx, limiter, "tenant-1"))
	require.True(t, IsAllowed(ctx, limiter, "tenant-2"))
	require.Equal(t, 2, limiter.KeysCount())

	clock.Advance(time.Minute * 2)

	worker := EvictionWorker(limiter, time.Millisecond, log.NewDisabledLogger())
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go func() { _ = worker.Run(workerCtx) }()

	require.Eventually(t, func() bool {
		return limiter.KeysCount() == 0
	}, time.Second, time.Millisecond*5)
}
