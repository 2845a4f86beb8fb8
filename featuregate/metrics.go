/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package featuregate

import "github.com/prometheus/client_golang/prometheus"

const metricsLabelFeature = "feature"

// MetricsCollector represents a collector of feature gating metrics.
type MetricsCollector interface {
	// IncAccepted increments the number of inclusion checks that answered true.
	IncAccepted(feature string)

	// IncRejected increments the number of inclusion checks that answered false.
	IncRejected(feature string)

	// IncErrors increments the number of recorded feature errors.
	IncErrors(feature string)

	// IncTripped increments the number of circuit trips.
	IncTripped(feature string)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for feature gating.
type PrometheusMetrics struct {
	AcceptedTotal *prometheus.CounterVec
	RejectedTotal *prometheus.CounterVec
	ErrorsTotal   *prometheus.CounterVec
	TrippedTotal  *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	labels := []string{metricsLabelFeature}
	return &PrometheusMetrics{
		AcceptedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "feature_gate_accepted_total",
			Help:        "Number of inclusion checks that answered true.",
			ConstLabels: opts.ConstLabels,
		}, labels),
		RejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "feature_gate_rejected_total",
			Help:        "Number of inclusion checks that answered false.",
			ConstLabels: opts.ConstLabels,
		}, labels),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "feature_gate_errors_total",
			Help:        "Number of errors recorded against features.",
			ConstLabels: opts.ConstLabels,
		}, labels),
		TrippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "feature_gate_tripped_total",
			Help:        "Number of times a feature circuit tripped into forced-disabled state.",
			ConstLabels: opts.ConstLabels,
		}, labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.AcceptedTotal, pm.RejectedTotal, pm.ErrorsTotal, pm.TrippedTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AcceptedTotal)
	prometheus.Unregister(pm.RejectedTotal)
	prometheus.Unregister(pm.ErrorsTotal)
	prometheus.Unregister(pm.TrippedTotal)
}

// IncAccepted increments the number of inclusion checks that answered true.
func (pm *PrometheusMetrics) IncAccepted(feature string) {
	pm.AcceptedTotal.With(prometheus.Labels{metricsLabelFeature: feature}).Inc()
}

// IncRejected increments the number of inclusion checks that answered false.
func (pm *PrometheusMetrics) IncRejected(feature string) {
	pm.RejectedTotal.With(prometheus.Labels{metricsLabelFeature: feature}).Inc()
}

// IncErrors increments the number of recorded feature errors.
func (pm *PrometheusMetrics) IncErrors(feature string) {
	pm.ErrorsTotal.With(prometheus.Labels{metricsLabelFeature: feature}).Inc()
}

// IncTripped increments the number of circuit trips.
func (pm *PrometheusMetrics) IncTripped(feature string) {
	pm.TrippedTotal.With(prometheus.Labels{metricsLabelFeature: feature}).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncAccepted(string) {}
func (disabledMetrics) IncRejected(string) {}
func (disabledMetrics) IncErrors(string)   {}
func (disabledMetrics) IncTripped(string)  {}
