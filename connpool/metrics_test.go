/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package connpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-accelkit/testutil"
)

func TestPoolMetrics(t *testing.T) {
	ctx := context.Background()
	dialer := &countingDialer{}
	promMetrics := NewPrometheusMetrics()
	pool := NewWithOpts(Config{MaxConnsPerEndpoint: 1}, Opts{Dial: dialer.dial, MetricsCollector: promMetrics})

	h, err := pool.Get(ctx, "ep")
	require.NoError(t, err)
	_, err = pool.Get(ctx, "ep")
	require.ErrorIs(t, err, ErrPoolExhausted)
	require.NoError(t, pool.Put(h))
	h, err = pool.Get(ctx, "ep")
	require.NoError(t, err)
	pool.Remove(h)

	testutil.RequireSamplesCountInCounter(t, promMetrics.CreatedTotal, 1)
	testutil.RequireSamplesCountInCounter(t, promMetrics.ReusedTotal, 1)
	testutil.RequireSamplesCountInCounter(t, promMetrics.RemovedTotal, 1)
	testutil.RequireSamplesCountInCounter(t, promMetrics.ExhaustedTotal, 1)
}
