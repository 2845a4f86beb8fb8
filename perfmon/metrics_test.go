/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-accelkit/testutil"
)

func TestMonitorPrometheusMetrics(t *testing.T) {
	promMetrics := NewPrometheusMetrics()
	m := NewMonitorWithOpts(Opts{MetricsCollector: promMetrics})

	m.Record("hash", VariantAccelerated, time.Millisecond*3, true, nil)
	m.Record("hash", VariantAccelerated, time.Millisecond*7, false, nil)
	m.Record("hash", VariantBaseline, time.Millisecond*10, true, nil)

	hist := promMetrics.Durations.WithLabelValues("hash", VariantAccelerated).(prometheus.Histogram)
	testutil.RequireSamplesCountInHistogram(t, hist, 2)
	hist = promMetrics.Durations.WithLabelValues("hash", VariantBaseline).(prometheus.Histogram)
	testutil.RequireSamplesCountInHistogram(t, hist, 1)
	testutil.RequireSamplesCountInCounter(t, promMetrics.ErrorsTotal.WithLabelValues("hash", VariantAccelerated), 1)
}
