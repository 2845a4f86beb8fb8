/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"math"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// DefaultMaxSamplesPerSeries bounds the latency samples retained
// per (component, operation) series. Oldest samples are dropped silently.
const DefaultMaxSamplesPerSeries = 1000

// Clock abstracts the time source for deterministic testing of throughput computation.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Monitor aggregates latency and error statistics per (component, operation) series.
//
// Counters are exact; latency percentiles are computed over a bounded ring of
// recent samples, optionally thinned by the sample rate. Recording never blocks
// the caller's operation and never fails.
type Monitor struct {
	mu     sync.RWMutex
	series map[seriesKey]*series

	enabled    atomic.Bool
	sampleRate float64
	maxSamples int

	clock   Clock
	metrics MetricsCollector
}

type seriesKey struct {
	component string
	operation string
}

type series struct {
	mu sync.Mutex

	count      int64
	errorCount int64
	durSumMs   float64
	firstAt    time.Time
	lastAt     time.Time

	// samples is a ring of recent latencies in milliseconds.
	samples []float64
	head    int
}

// Opts contains optional parameters for constructing Monitor.
type Opts struct {
	// SampleRate is the fraction of records whose latency is retained for
	// percentile computation, in (0, 1]. Counters stay exact regardless.
	// 1.0 (retain everything) when not set.
	SampleRate float64

	// MaxSamplesPerSeries bounds the latency ring per series.
	// DefaultMaxSamplesPerSeries when not set.
	MaxSamplesPerSeries int

	// Clock substitutes the time source. Used in tests.
	Clock Clock

	// MetricsCollector mirrors records into external metrics. May be nil.
	MetricsCollector MetricsCollector
}

// NewMonitor creates a new Monitor with default options.
func NewMonitor() *Monitor {
	return NewMonitorWithOpts(Opts{})
}

// NewMonitorWithOpts creates a new Monitor
// with an ability to specify different optional parameters.
func NewMonitorWithOpts(opts Opts) *Monitor {
	sampleRate := opts.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1
	}
	maxSamples := opts.MaxSamplesPerSeries
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamplesPerSeries
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetrics{}
	}
	m := &Monitor{
		series:     make(map[seriesKey]*series),
		sampleRate: sampleRate,
		maxSamples: maxSamples,
		clock:      clock,
		metrics:    metrics,
	}
	m.enabled.Store(true)
	return m
}

// SetEnabled switches recording on or off. A disabled monitor keeps already
// collected aggregates and turns Record into a no-op.
func (m *Monitor) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// Record adds one observation to the (component, operation) series.
// Metadata is passed through to the external metrics collector only,
// the monitor itself does not aggregate by it.
func (m *Monitor) Record(component, operation string, duration time.Duration, success bool, metadata map[string]string) {
	if !m.enabled.Load() {
		return
	}
	now := m.clock.Now()
	durationMs := float64(duration) / float64(time.Millisecond)

	s := m.getOrCreateSeries(seriesKey{component: component, operation: operation})

	s.mu.Lock()
	s.count++
	if !success {
		s.errorCount++
	}
	s.durSumMs += durationMs
	if s.firstAt.IsZero() {
		s.firstAt = now
	}
	s.lastAt = now
	if m.sampleKept(s.count) {
		if len(s.samples) < m.maxSamples {
			s.samples = append(s.samples, durationMs)
		} else {
			// Ring is full, the oldest sample is dropped.
			s.samples[s.head] = durationMs
			s.head = (s.head + 1) % m.maxSamples
		}
	}
	s.mu.Unlock()

	m.metrics.ObserveDuration(component, operation, duration, success, metadata)
}

// sampleKept decides deterministically whether the n-th record of a series
// keeps its latency sample: it does when floor(n*rate) advances.
func (m *Monitor) sampleKept(n int64) bool {
	if m.sampleRate >= 1 {
		return true
	}
	return math.Floor(float64(n)*m.sampleRate) > math.Floor(float64(n-1)*m.sampleRate)
}

func (m *Monitor) getOrCreateSeries(key seriesKey) *series {
	m.mu.RLock()
	s := m.series[key]
	m.mu.RUnlock()
	if s != nil {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s = m.series[key]; s == nil {
		s = &series{}
		m.series[key] = s
	}
	return s
}

// Purge drops all collected series. Used in tests and on reconfiguration.
func (m *Monitor) Purge() {
	m.mu.Lock()
	m.series = make(map[seriesKey]*series)
	m.mu.Unlock()
}
