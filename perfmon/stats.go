/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoSuchSeries is returned when no observations exist for the requested series.
var ErrNoSuchSeries = errors.New("no observations for series")

// AggregateStats is a momentary aggregate of one (component, operation) series.
// Count and ErrorRate are exact; percentiles are computed over the retained
// sample ring and so reflect recent behavior under sustained load.
type AggregateStats struct {
	Count      int64   `json:"count"`
	MeanMs     float64 `json:"mean_ms"`
	P50Ms      float64 `json:"p50"`
	P95Ms      float64 `json:"p95"`
	P99Ms      float64 `json:"p99"`
	ErrorRate  float64 `json:"error_rate"`
	Throughput float64 `json:"throughput_per_sec,omitempty"`
}

func (s *series) snapshot(sink []float64) (AggregateStats, []float64) {
	s.mu.Lock()
	stats := AggregateStats{Count: s.count}
	if s.count > 0 {
		stats.MeanMs = s.durSumMs / float64(s.count)
		stats.ErrorRate = float64(s.errorCount) / float64(s.count)
	}
	if elapsed := s.lastAt.Sub(s.firstAt); elapsed > 0 {
		stats.Throughput = float64(s.count-1) / elapsed.Seconds()
	}
	sink = append(sink[:0], s.samples...)
	s.mu.Unlock()

	if len(sink) > 0 {
		sort.Float64s(sink)
		stats.P50Ms = percentile(sink, 50)
		stats.P95Ms = percentile(sink, 95)
		stats.P99Ms = percentile(sink, 99)
	}
	return stats, sink
}

// percentile returns the nearest-rank percentile of sorted values.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100 // ceil(p*n/100)
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

// Stats returns aggregates for all series, keyed by component and then operation.
func (m *Monitor) Stats() map[string]map[string]AggregateStats {
	m.mu.RLock()
	keys := make([]seriesKey, 0, len(m.series))
	refs := make([]*series, 0, len(m.series))
	for key, s := range m.series {
		keys = append(keys, key)
		refs = append(refs, s)
	}
	m.mu.RUnlock()

	result := make(map[string]map[string]AggregateStats)
	var sink []float64
	for i, key := range keys {
		var stats AggregateStats
		stats, sink = refs[i].snapshot(sink)
		ops := result[key.component]
		if ops == nil {
			ops = make(map[string]AggregateStats)
			result[key.component] = ops
		}
		ops[key.operation] = stats
	}
	return result
}

// ComponentStats returns aggregates of one component keyed by operation.
// The result is empty when the component has no observations.
func (m *Monitor) ComponentStats(component string) map[string]AggregateStats {
	m.mu.RLock()
	ops := make(map[string]*series)
	for key, s := range m.series {
		if key.component == component {
			ops[key.operation] = s
		}
	}
	m.mu.RUnlock()

	result := make(map[string]AggregateStats, len(ops))
	var sink []float64
	for op, s := range ops {
		var stats AggregateStats
		stats, sink = s.snapshot(sink)
		result[op] = stats
	}
	return result
}

// OperationStats returns the aggregate of a single (component, operation) series.
func (m *Monitor) OperationStats(component, operation string) (AggregateStats, error) {
	m.mu.RLock()
	s := m.series[seriesKey{component: component, operation: operation}]
	m.mu.RUnlock()
	if s == nil {
		return AggregateStats{}, fmt.Errorf("%w: %s/%s", ErrNoSuchSeries, component, operation)
	}
	stats, _ := s.snapshot(nil)
	return stats, nil
}

// Comparison describes how variant A performs against variant B.
type Comparison struct {
	// RelativeSpeedup is meanB/meanA: values above 1 mean A is faster.
	RelativeSpeedup float64 `json:"relative_speedup"`

	// ErrorRateDelta is errorRateA - errorRateB.
	ErrorRateDelta float64 `json:"error_rate_delta"`

	SamplesA int64 `json:"samples_a"`
	SamplesB int64 `json:"samples_b"`
}

// Compare computes the relative speedup and error-rate delta of two operation
// variants within a component. Both series must have observations.
func (m *Monitor) Compare(component, variantA, variantB string) (Comparison, error) {
	statsA, err := m.OperationStats(component, variantA)
	if err != nil {
		return Comparison{}, err
	}
	statsB, err := m.OperationStats(component, variantB)
	if err != nil {
		return Comparison{}, err
	}
	cmp := Comparison{
		ErrorRateDelta: statsA.ErrorRate - statsB.ErrorRate,
		SamplesA:       statsA.Count,
		SamplesB:       statsB.Count,
	}
	if statsA.MeanMs > 0 {
		cmp.RelativeSpeedup = statsB.MeanMs / statsA.MeanMs
	}
	return cmp, nil
}
