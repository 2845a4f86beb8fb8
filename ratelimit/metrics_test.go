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

	"github.com/acronis/go-accelkit/testutil"
)

func TestObservingLimiter(t *testing.T) {
	ctx := context.Background()

	limiter, err := NewTokenBucketLimiter(Rate{Count: 20, Duration: time.Minute}, 2, 100)
	require.NoError(t, err)
	promMetrics := NewPrometheusMetrics()
	promMetrics.MustRegister()
	defer promMetrics.Unregister()

	obs := NewObservingLimiter(limiter, promMetrics)
	for i := 0; i < 3; i++ {
		res, checkErr := obs.Check(ctx, "tenant-1")
		require.NoError(t, checkErr)
		require.Equal(t, i < 2, res.Allowed)
	}

	testutil.RequireSamplesCountInCounter(t, promMetrics.AllowedTotal, 2)
	testutil.RequireSamplesCountInCounter(t, promMetrics.DeniedTotal, 1)
}
