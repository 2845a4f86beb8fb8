/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package accel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-accelkit/featuregate"
	"github.com/acronis/go-accelkit/log/logtest"
	"github.com/acronis/go-accelkit/perfmon"
)

type countingFn struct {
	calls int
	fn    Fn
}

func (c *countingFn) call(ctx context.Context, req interface{}) (interface{}, error) {
	c.calls++
	return c.fn(ctx, req)
}

func newTestDispatcher(t *testing.T, threshold int) (*Dispatcher, *featuregate.Registry, *perfmon.Monitor, *logtest.Recorder) {
	t.Helper()
	gate := featuregate.NewRegistryWithOpts(featuregate.RegistryOpts{ErrorThreshold: threshold})
	monitor := perfmon.NewMonitor()
	recorder := logtest.NewRecorder()
	return NewWithOpts(gate, monitor, Opts{Logger: recorder}), gate, monitor, recorder
}

func TestDispatcherDo(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled feature takes the accelerated path", func(t *testing.T) {
		d, gate, monitor, _ := newTestDispatcher(t, 5)
		gate.Register("hash", featuregate.Enabled)

		baseline := &countingFn{fn: func(_ context.Context, _ interface{}) (interface{}, error) { return "slow", nil }}
		accelerated := &countingFn{fn: func(_ context.Context, req interface{}) (interface{}, error) {
			return "fast:" + req.(string), nil
		}}

		res, err := d.Do(ctx, Operation{Name: "hash", Baseline: baseline.call, Accelerated: accelerated.call}, "key", "data")
		require.NoError(t, err)
		require.Equal(t, "fast:data", res)
		require.Equal(t, 1, accelerated.calls)
		require.Equal(t, 0, baseline.calls)

		stats, err := monitor.OperationStats("hash", perfmon.VariantAccelerated)
		require.NoError(t, err)
		require.Equal(t, int64(1), stats.Count)
		require.Zero(t, stats.ErrorRate)
	})

	t.Run("disabled feature takes the baseline path", func(t *testing.T) {
		d, gate, monitor, _ := newTestDispatcher(t, 5)
		gate.Register("hash", featuregate.Disabled)

		baseline := &countingFn{fn: func(_ context.Context, _ interface{}) (interface{}, error) { return "slow", nil }}
		accelerated := &countingFn{fn: func(_ context.Context, _ interface{}) (interface{}, error) { return "fast", nil }}

		res, err := d.Do(ctx, Operation{Name: "hash", Baseline: baseline.call, Accelerated: accelerated.call}, "key", nil)
		require.NoError(t, err)
		require.Equal(t, "slow", res)
		require.Equal(t, 0, accelerated.calls)

		stats, err := monitor.OperationStats("hash", perfmon.VariantBaseline)
		require.NoError(t, err)
		require.Equal(t, int64(1), stats.Count)
	})

	t.Run("accelerated failure falls back and is counted", func(t *testing.T) {
		d, gate, monitor, recorder := newTestDispatcher(t, 5)
		gate.Register("hash", featuregate.Enabled)

		baseline := &countingFn{fn: func(_ context.Context, _ interface{}) (interface{}, error) { return "slow", nil }}
		failing := func(_ context.Context, _ interface{}) (interface{}, error) {
			return nil, errors.New("simd not supported")
		}

		res, err := d.Do(ctx, Operation{Name: "hash", Baseline: baseline.call, Accelerated: failing}, "key", nil)
		require.NoError(t, err)
		require.Equal(t, "slow", res)
		require.Equal(t, 1, baseline.calls)

		status, ok := gate.Status("hash")
		require.True(t, ok)
		require.Equal(t, int64(1), status.ErrorCount)

		accelStats, err := monitor.OperationStats("hash", perfmon.VariantAccelerated)
		require.NoError(t, err)
		require.Equal(t, 1.0, accelStats.ErrorRate)
		baseStats, err := monitor.OperationStats("hash", perfmon.VariantBaseline)
		require.NoError(t, err)
		require.Equal(t, int64(1), baseStats.Count)

		_, found := recorder.FindEntry("accelerated path failed, falling back to baseline")
		require.True(t, found)
	})

	t.Run("accelerated panic is contained", func(t *testing.T) {
		d, gate, _, _ := newTestDispatcher(t, 5)
		gate.Register("hash", featuregate.Enabled)

		baseline := &countingFn{fn: func(_ context.Context, _ interface{}) (interface{}, error) { return "slow", nil }}
		panicking := func(_ context.Context, _ interface{}) (interface{}, error) { panic("index out of range") }

		res, err := d.Do(ctx, Operation{Name: "hash", Baseline: baseline.call, Accelerated: panicking}, "key", nil)
		require.NoError(t, err)
		require.Equal(t, "slow", res)

		status, _ := gate.Status("hash")
		require.Equal(t, int64(1), status.ErrorCount)
	})

	t.Run("only a double failure reaches the caller", func(t *testing.T) {
		d, gate, _, _ := newTestDispatcher(t, 5)
		gate.Register("hash", featuregate.Enabled)

		baselineErr := errors.New("disk full")
		failingBaseline := func(_ context.Context, _ interface{}) (interface{}, error) { return nil, baselineErr }
		failingAccel := func(_ context.Context, _ interface{}) (interface{}, error) { return nil, errors.New("bad") }

		_, err := d.Do(ctx, Operation{Name: "hash", Baseline: failingBaseline, Accelerated: failingAccel}, "key", nil)
		require.ErrorIs(t, err, baselineErr)
	})

	t.Run("tripped circuit routes straight to baseline", func(t *testing.T) {
		d, gate, _, _ := newTestDispatcher(t, 2)
		gate.Register("hash", featuregate.Enabled)

		accelerated := &countingFn{fn: func(_ context.Context, _ interface{}) (interface{}, error) {
			return nil, errors.New("boom")
		}}
		baseline := &countingFn{fn: func(_ context.Context, _ interface{}) (interface{}, error) { return "slow", nil }}
		op := Operation{Name: "hash", Baseline: baseline.call, Accelerated: accelerated.call}

		for i := 0; i < 5; i++ {
			res, err := d.Do(ctx, op, "key", nil)
			require.NoError(t, err)
			require.Equal(t, "slow", res)
		}
		// Two failures tripped the circuit, the rest never touched the accelerated path.
		require.Equal(t, 2, accelerated.calls)
		require.Equal(t, 5, baseline.calls)
	})

	t.Run("nil accelerated implementation is fine", func(t *testing.T) {
		d, gate, _, _ := newTestDispatcher(t, 5)
		gate.Register("hash", featuregate.Enabled)

		res, err := d.Do(ctx, Operation{
			Name:     "hash",
			Baseline: func(_ context.Context, _ interface{}) (interface{}, error) { return "slow", nil },
		}, "key", nil)
		require.NoError(t, err)
		require.Equal(t, "slow", res)
	})

	t.Run("missing baseline is rejected", func(t *testing.T) {
		d, _, _, _ := newTestDispatcher(t, 5)
		_, err := d.Do(ctx, Operation{Name: "hash"}, "key", nil)
		require.Error(t, err)
	})
}

func TestDispatcherRegisterAndDispatch(t *testing.T) {
	ctx := context.Background()
	d, gate, _, _ := newTestDispatcher(t, 5)
	gate.Register("compress", featuregate.Disabled)

	require.Error(t, d.RegisterOperation(Operation{Name: ""}))
	require.Error(t, d.RegisterOperation(Operation{Name: "compress"}))

	require.NoError(t, d.RegisterOperation(Operation{
		Name:     "compress",
		Baseline: func(_ context.Context, _ interface{}) (interface{}, error) { return "ok", nil },
	}))
	require.Equal(t, []string{"compress"}, d.Operations())

	res, err := d.Dispatch(ctx, "compress", "key", nil)
	require.NoError(t, err)
	require.Equal(t, "ok", res)

	_, err = d.Dispatch(ctx, "ghost", "key", nil)
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestDispatcherHealth(t *testing.T) {
	ctx := context.Background()
	d, gate, _, _ := newTestDispatcher(t, 5)
	gate.Register("hash", featuregate.Rollout(50))
	require.NoError(t, d.RegisterOperation(Operation{
		Name:     "hash",
		Baseline: func(_ context.Context, _ interface{}) (interface{}, error) { return nil, nil },
	}))
	_, err := d.Dispatch(ctx, "hash", "key", nil)
	require.NoError(t, err)

	hs := d.Health()
	require.Equal(t, []string{"hash"}, hs.Operations)
	require.Contains(t, hs.Features, "hash")
	require.Equal(t, featuregate.Rollout(50), hs.Features["hash"].Mode)
	require.Contains(t, hs.Monitoring, "hash")
	require.Nil(t, hs.Pool)
}
