/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for admission decisions.
type PrometheusMetrics struct {
	AllowedTotal prometheus.Counter
	DeniedTotal  prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		AllowedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "rate_limit_allowed_total",
			Help:        "Number of requests admitted by the rate limiter.",
			ConstLabels: opts.ConstLabels,
		}),
		DeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "rate_limit_denied_total",
			Help:        "Number of requests denied by the rate limiter.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.AllowedTotal, pm.DeniedTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AllowedTotal)
	prometheus.Unregister(pm.DeniedTotal)
}

// ObservingLimiter wraps a Limiter and counts admission decisions.
type ObservingLimiter struct {
	Limiter
	metrics *PrometheusMetrics
}

// NewObservingLimiter creates a Limiter decorator that reports admission decisions to Prometheus.
func NewObservingLimiter(l Limiter, metrics *PrometheusMetrics) *ObservingLimiter {
	return &ObservingLimiter{Limiter: l, metrics: metrics}
}

// Check checks if the request should be allowed for the key and counts the decision.
func (l *ObservingLimiter) Check(ctx context.Context, key string) (Result, error) {
	res, err := l.Limiter.Check(ctx, key)
	if err != nil {
		return res, err
	}
	if res.Allowed {
		l.metrics.AllowedTotal.Inc()
	} else {
		l.metrics.DeniedTotal.Inc()
	}
	return res, nil
}
