/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package featuregate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-accelkit/testutil"
)

func TestRegistryMetrics(t *testing.T) {
	promMetrics := NewPrometheusMetrics()
	registry := NewRegistryWithOpts(RegistryOpts{ErrorThreshold: 2, MetricsCollector: promMetrics})
	registry.Register("hash", Enabled)

	require.True(t, registry.IsEnabled("hash", "key"))
	require.False(t, registry.IsEnabled("ghost", "key"))

	registry.RecordError("hash")
	registry.RecordError("hash")
	require.False(t, registry.IsEnabled("hash", "key")) // circuit is open

	registry.Reset("hash")
	registry.SetGlobalEnabled(false)
	require.False(t, registry.IsEnabled("hash", "key")) // kill switch

	// Every check answered false must show up as a rejection,
	// no matter whether the circuit, the kill switch or an unknown name caused it.
	testutil.RequireSamplesCountInCounter(t, promMetrics.AcceptedTotal.WithLabelValues("hash"), 1)
	testutil.RequireSamplesCountInCounter(t, promMetrics.RejectedTotal.WithLabelValues("hash"), 2)
	testutil.RequireSamplesCountInCounter(t, promMetrics.RejectedTotal.WithLabelValues("ghost"), 1)
	testutil.RequireSamplesCountInCounter(t, promMetrics.ErrorsTotal.WithLabelValues("hash"), 2)
	testutil.RequireSamplesCountInCounter(t, promMetrics.TrippedTotal.WithLabelValues("hash"), 1)
}
