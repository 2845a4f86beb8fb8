/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ExportFormat is a serialization format for monitor snapshots.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
)

// Export serializes a momentary snapshot of all aggregates.
//
// JSON yields a nested object keyed by component and operation,
// CSV yields flat "component,operation,count,mean_ms,p50,p95,p99,error_rate" rows
// in deterministic order.
func (m *Monitor) Export(format ExportFormat) ([]byte, error) {
	stats := m.Stats()
	switch format {
	case ExportFormatJSON:
		return json.MarshalIndent(stats, "", "  ")
	case ExportFormatCSV:
		return exportCSV(stats)
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

func exportCSV(stats map[string]map[string]AggregateStats) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"component", "operation", "count", "mean_ms", "p50", "p95", "p99", "error_rate"}); err != nil {
		return nil, err
	}

	components := make([]string, 0, len(stats))
	for component := range stats {
		components = append(components, component)
	}
	sort.Strings(components)

	for _, component := range components {
		ops := make([]string, 0, len(stats[component]))
		for op := range stats[component] {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			s := stats[component][op]
			record := []string{
				component,
				op,
				strconv.FormatInt(s.Count, 10),
				formatFloat(s.MeanMs),
				formatFloat(s.P50Ms),
				formatFloat(s.P95Ms),
				formatFloat(s.P99Ms),
				formatFloat(s.ErrorRate),
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
