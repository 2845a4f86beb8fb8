/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"fmt"
	"sort"
)

// Well-known operation variant names used by recommendation pairing.
const (
	VariantAccelerated = "accelerated"
	VariantBaseline    = "baseline"
)

// Fixed recommendation thresholds.
const (
	// RecommendErrorRateThreshold is the error rate above which disabling is suggested.
	RecommendErrorRateThreshold = 0.1

	// RecommendMinSamples is the minimum sample count for speedup conclusions.
	RecommendMinSamples = 100

	// RecommendNoiseFloor is the relative speedup below which the gain
	// is considered indistinguishable from noise.
	RecommendNoiseFloor = 1.05
)

// Recommendation is a heuristic finding derived from current aggregates.
type Recommendation struct {
	Component string `json:"component"`
	Operation string `json:"operation"`
	Finding   string `json:"finding"`
}

// Recommendations derives heuristic findings from current aggregates against
// fixed thresholds. The result is deterministic for a given monitor state and
// sorted by component and operation.
func (m *Monitor) Recommendations() []Recommendation {
	stats := m.Stats()

	var recs []Recommendation
	for component, ops := range stats {
		for op, s := range ops {
			if s.Count > 0 && s.ErrorRate > RecommendErrorRateThreshold {
				recs = append(recs, Recommendation{
					Component: component,
					Operation: op,
					Finding: fmt.Sprintf("error rate %.1f%% exceeds %.1f%% threshold, consider disabling",
						s.ErrorRate*100, RecommendErrorRateThreshold*100),
				})
			}
		}

		accel, hasAccel := ops[VariantAccelerated]
		base, hasBase := ops[VariantBaseline]
		if !hasAccel || !hasBase || accel.MeanMs <= 0 {
			continue
		}
		speedup := base.MeanMs / accel.MeanMs
		switch {
		case accel.Count < RecommendMinSamples || base.Count < RecommendMinSamples:
			recs = append(recs, Recommendation{
				Component: component,
				Operation: VariantAccelerated,
				Finding: fmt.Sprintf("only %d/%d samples collected, need %d per variant for a speedup conclusion",
					accel.Count, base.Count, RecommendMinSamples),
			})
		case speedup < RecommendNoiseFloor:
			recs = append(recs, Recommendation{
				Component: component,
				Operation: VariantAccelerated,
				Finding: fmt.Sprintf("speedup %.2fx is below the %.2fx noise floor at this sample size, consider disabling",
					speedup, RecommendNoiseFloor),
			})
		}
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Component != recs[j].Component {
			return recs[i].Component < recs[j].Component
		}
		if recs[i].Operation != recs[j].Operation {
			return recs[i].Operation < recs[j].Operation
		}
		return recs[i].Finding < recs[j].Finding
	})
	return recs
}
