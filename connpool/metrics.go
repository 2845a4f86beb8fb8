/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package connpool

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of pool usage metrics.
type MetricsCollector interface {
	// IncCreated increments the total number of created handles.
	IncCreated()

	// IncReused increments the total number of acquisitions served by an idle handle.
	IncReused()

	// IncRemoved increments the total number of removed handles.
	IncRemoved()

	// IncExhausted increments the total number of acquisitions rejected because the pool was full.
	IncExhausted()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for the connection pool.
type PrometheusMetrics struct {
	CreatedTotal   prometheus.Counter
	ReusedTotal    prometheus.Counter
	RemovedTotal   prometheus.Counter
	ExhaustedTotal prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		CreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "conn_pool_created_total",
			Help:        "Number of connection handles created by the pool.",
			ConstLabels: opts.ConstLabels,
		}),
		ReusedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "conn_pool_reused_total",
			Help:        "Number of acquisitions served by an idle handle.",
			ConstLabels: opts.ConstLabels,
		}),
		RemovedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "conn_pool_removed_total",
			Help:        "Number of connection handles removed from the pool.",
			ConstLabels: opts.ConstLabels,
		}),
		ExhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "conn_pool_exhausted_total",
			Help:        "Number of acquisitions rejected because the per-endpoint limit was reached.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.CreatedTotal, pm.ReusedTotal, pm.RemovedTotal, pm.ExhaustedTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.CreatedTotal)
	prometheus.Unregister(pm.ReusedTotal)
	prometheus.Unregister(pm.RemovedTotal)
	prometheus.Unregister(pm.ExhaustedTotal)
}

// IncCreated increments the total number of created handles.
func (pm *PrometheusMetrics) IncCreated() { pm.CreatedTotal.Inc() }

// IncReused increments the total number of acquisitions served by an idle handle.
func (pm *PrometheusMetrics) IncReused() { pm.ReusedTotal.Inc() }

// IncRemoved increments the total number of removed handles.
func (pm *PrometheusMetrics) IncRemoved() { pm.RemovedTotal.Inc() }

// IncExhausted increments the total number of acquisitions rejected because the pool was full.
func (pm *PrometheusMetrics) IncExhausted() { pm.ExhaustedTotal.Inc() }

type disabledMetrics struct{}

func (disabledMetrics) IncCreated()   {}
func (disabledMetrics) IncReused()    {}
func (disabledMetrics) IncRemoved()   {}
func (disabledMetrics) IncExhausted() {}
