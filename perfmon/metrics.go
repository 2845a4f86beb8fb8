/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsLabelComponent = "component"
	metricsLabelOperation = "operation"
)

// MetricsCollector mirrors monitor records into an external metrics system.
type MetricsCollector interface {
	// ObserveDuration reports one observation.
	ObserveDuration(component, operation string, duration time.Duration, success bool, metadata map[string]string)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// DurationBuckets is a list of buckets into which observations are counted.
	// Default buckets are used if not provided.
	DurationBuckets []float64

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// DefaultDurationBuckets is default buckets (in seconds) into which observations are counted.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// PrometheusMetrics represents Prometheus metrics for monitored operations.
type PrometheusMetrics struct {
	Durations   *prometheus.HistogramVec
	ErrorsTotal *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultDurationBuckets
	}
	labels := []string{metricsLabelComponent, metricsLabelOperation}
	return &PrometheusMetrics{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "operation_duration_seconds",
			Help:        "Histogram of monitored operation durations.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, labels),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "operation_errors_total",
			Help:        "Number of failed monitored operations.",
			ConstLabels: opts.ConstLabels,
		}, labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Durations, pm.ErrorsTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Durations)
	prometheus.Unregister(pm.ErrorsTotal)
}

// ObserveDuration reports one observation.
func (pm *PrometheusMetrics) ObserveDuration(
	component, operation string, duration time.Duration, success bool, _ map[string]string,
) {
	labels := prometheus.Labels{metricsLabelComponent: component, metricsLabelOperation: operation}
	pm.Durations.With(labels).Observe(duration.Seconds())
	if !success {
		pm.ErrorsTotal.With(labels).Inc()
	}
}

type disabledMetrics struct{}

func (disabledMetrics) ObserveDuration(string, string, time.Duration, bool, map[string]string) {}
