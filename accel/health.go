/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package accel

import (
	"github.com/acronis/go-accelkit/connpool"
	"github.com/acronis/go-accelkit/featuregate"
	"github.com/acronis/go-accelkit/perfmon"
)

// HealthStatus is a momentary diagnostic snapshot of the dispatcher and its
// collaborators. Counts are eventually consistent, not linearizable.
type HealthStatus struct {
	// Operations lists registered operation names.
	Operations []string `json:"operations"`

	// Features is the per-feature gate state keyed by feature name.
	Features map[string]featuregate.Status `json:"features"`

	// Monitoring is the aggregate view keyed by component and operation.
	Monitoring map[string]map[string]perfmon.AggregateStats `json:"monitoring"`

	// Pool holds connection counts when a pool was attached, nil otherwise.
	Pool *connpool.Stats `json:"pool,omitempty"`
}

// Health returns a diagnostic snapshot: registered operations, feature gate
// states, monitoring aggregates and, when a pool is attached, its handle counts.
func (d *Dispatcher) Health() HealthStatus {
	hs := HealthStatus{
		Operations: d.Operations(),
		Features:   make(map[string]featuregate.Status),
		Monitoring: d.monitor.Stats(),
	}
	for _, name := range d.gate.Features() {
		if status, ok := d.gate.Status(name); ok {
			hs.Features[name] = status
		}
	}
	if d.pool != nil {
		stats := d.pool.GetStats()
		hs.Pool = &stats
	}
	return hs
}
