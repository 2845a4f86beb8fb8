/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-accelkit/testutil"
)

func recordSeries(m *Monitor, component, operation string, durationsMs []int, failures int) {
	for i, d := range durationsMs {
		m.Record(component, operation, time.Duration(d)*time.Millisecond, i < len(durationsMs)-failures, nil)
	}
}

func TestMonitorStats(t *testing.T) {
	t.Run("aggregates are exact", func(t *testing.T) {
		m := NewMonitor()
		recordSeries(m, "hash", "accelerated", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 2)

		stats, err := m.OperationStats("hash", "accelerated")
		require.NoError(t, err)
		require.Equal(t, int64(10), stats.Count)
		require.InDelta(t, 5.5, stats.MeanMs, 1e-9)
		require.InDelta(t, 0.2, stats.ErrorRate, 1e-9)
		require.InDelta(t, 5, stats.P50Ms, 1e-9)
		require.InDelta(t, 10, stats.P95Ms, 1e-9)
		require.InDelta(t, 10, stats.P99Ms, 1e-9)
	})

	t.Run("unknown series", func(t *testing.T) {
		m := NewMonitor()
		_, err := m.OperationStats("hash", "accelerated")
		require.ErrorIs(t, err, ErrNoSuchSeries)
	})

	t.Run("ring keeps only recent samples, counters stay exact", func(t *testing.T) {
		m := NewMonitorWithOpts(Opts{MaxSamplesPerSeries: 5})
		recordSeries(m, "hash", "accelerated", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0)

		stats, err := m.OperationStats("hash", "accelerated")
		require.NoError(t, err)
		require.Equal(t, int64(10), stats.Count)
		// Percentiles over the surviving samples 6..10.
		require.InDelta(t, 8, stats.P50Ms, 1e-9)
	})

	t.Run("sample rate thins the ring deterministically", func(t *testing.T) {
		m := NewMonitorWithOpts(Opts{SampleRate: 0.5})
		recordSeries(m, "hash", "accelerated", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0)

		stats, err := m.OperationStats("hash", "accelerated")
		require.NoError(t, err)
		require.Equal(t, int64(10), stats.Count)
		// Every second record keeps its sample: 2, 4, 6, 8, 10.
		require.InDelta(t, 6, stats.P50Ms, 1e-9)
	})

	t.Run("throughput is derived from the observation span", func(t *testing.T) {
		clock := testutil.NewFakeClock(time.Unix(1700000000, 0))
		m := NewMonitorWithOpts(Opts{Clock: clock})

		m.Record("hash", "accelerated", time.Millisecond, true, nil)
		clock.Advance(time.Second)
		m.Record("hash", "accelerated", time.Millisecond, true, nil)
		clock.Advance(time.Second)
		m.Record("hash", "accelerated", time.Millisecond, true, nil)

		stats, err := m.OperationStats("hash", "accelerated")
		require.NoError(t, err)
		require.InDelta(t, 1.0, stats.Throughput, 1e-9)
	})

	t.Run("disabled monitor drops records", func(t *testing.T) {
		m := NewMonitor()
		m.SetEnabled(false)
		m.Record("hash", "accelerated", time.Millisecond, true, nil)
		_, err := m.OperationStats("hash", "accelerated")
		require.ErrorIs(t, err, ErrNoSuchSeries)
	})

	t.Run("Stats groups by component and operation", func(t *testing.T) {
		m := NewMonitor()
		recordSeries(m, "hash", "accelerated", []int{1}, 0)
		recordSeries(m, "hash", "baseline", []int{2}, 0)
		recordSeries(m, "compress", "baseline", []int{3}, 0)

		all := m.Stats()
		require.Len(t, all, 2)
		require.Len(t, all["hash"], 2)
		require.Len(t, all["compress"], 1)

		component := m.ComponentStats("hash")
		require.Len(t, component, 2)
		require.Equal(t, int64(1), component["accelerated"].Count)
	})
}

func TestMonitorCompare(t *testing.T) {
	m := NewMonitor()
	recordSeries(m, "hash", VariantAccelerated, []int{5, 5, 5, 5}, 1)
	recordSeries(m, "hash", VariantBaseline, []int{10, 10, 10, 10}, 0)

	cmp, err := m.Compare("hash", VariantAccelerated, VariantBaseline)
	require.NoError(t, err)
	require.InDelta(t, 2.0, cmp.RelativeSpeedup, 1e-9)
	require.InDelta(t, 0.25, cmp.ErrorRateDelta, 1e-9)
	require.Equal(t, int64(4), cmp.SamplesA)
	require.Equal(t, int64(4), cmp.SamplesB)

	_, err = m.Compare("hash", VariantAccelerated, "ghost")
	require.ErrorIs(t, err, ErrNoSuchSeries)
}

func TestMonitorRecommendations(t *testing.T) {
	t.Run("high error rate is flagged", func(t *testing.T) {
		m := NewMonitor()
		recordSeries(m, "hash", VariantAccelerated, []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 3)

		recs := m.Recommendations()
		require.NotEmpty(t, recs)
		require.Contains(t, recs[0].Finding, "error rate")
	})

	t.Run("small sample size blocks speedup conclusions", func(t *testing.T) {
		m := NewMonitor()
		recordSeries(m, "hash", VariantAccelerated, []int{1, 1}, 0)
		recordSeries(m, "hash", VariantBaseline, []int{10, 10}, 0)

		recs := m.Recommendations()
		require.Len(t, recs, 1)
		require.Contains(t, recs[0].Finding, "samples")
	})

	t.Run("speedup below the noise floor is flagged", func(t *testing.T) {
		m := NewMonitor()
		durations := make([]int, RecommendMinSamples)
		for i := range durations {
			durations[i] = 10
		}
		recordSeries(m, "hash", VariantAccelerated, durations, 0)
		recordSeries(m, "hash", VariantBaseline, durations, 0)

		recs := m.Recommendations()
		require.Len(t, recs, 1)
		require.Contains(t, recs[0].Finding, "noise floor")
	})

	t.Run("clear win yields no findings", func(t *testing.T) {
		m := NewMonitor()
		fast := make([]int, RecommendMinSamples)
		slow := make([]int, RecommendMinSamples)
		for i := range fast {
			fast[i], slow[i] = 5, 50
		}
		recordSeries(m, "hash", VariantAccelerated, fast, 0)
		recordSeries(m, "hash", VariantBaseline, slow, 0)

		require.Empty(t, m.Recommendations())
	})
}

func TestMonitorExport(t *testing.T) {
	m := NewMonitor()
	recordSeries(m, "hash", "accelerated", []int{1, 2, 3, 4}, 1)
	recordSeries(m, "compress", "baseline", []int{10}, 0)

	t.Run("json", func(t *testing.T) {
		data, err := m.Export(ExportFormatJSON)
		require.NoError(t, err)

		var decoded map[string]map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &decoded))
		hash := decoded["hash"]["accelerated"]
		require.EqualValues(t, 4, hash["count"])
		require.InDelta(t, 0.25, hash["error_rate"].(float64), 1e-9)
		for _, field := range []string{"mean_ms", "p50", "p95", "p99"} {
			require.Contains(t, hash, field)
		}
	})

	t.Run("csv", func(t *testing.T) {
		data, err := m.Export(ExportFormatCSV)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 3)
		require.Equal(t, "component,operation,count,mean_ms,p50,p95,p99,error_rate", lines[0])
		require.Equal(t, "compress,baseline,1,10,10,10,10,0", lines[1])
		require.True(t, strings.HasPrefix(lines[2], "hash,accelerated,4,"))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := m.Export("xml")
		require.Error(t, err)
	})
}

func TestMonitorConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.True(t, cfg.Enabled)
	require.Equal(t, DefaultSampleRate, cfg.SampleRate)

	cfg.Enabled = false
	m := cfg.MakeMonitor()
	m.Record("hash", "accelerated", time.Millisecond, true, nil)
	_, err := m.OperationStats("hash", "accelerated")
	require.ErrorIs(t, err, ErrNoSuchSeries)
}
