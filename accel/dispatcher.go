/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package accel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/acronis/go-accelkit/connpool"
	"github.com/acronis/go-accelkit/featuregate"
	"github.com/acronis/go-accelkit/log"
	"github.com/acronis/go-accelkit/perfmon"
)

// ErrUnknownOperation is returned by Dispatch when the named operation was never registered.
var ErrUnknownOperation = errors.New("unknown operation")

// Fn is one implementation of a gated operation.
type Fn func(ctx context.Context, req interface{}) (interface{}, error)

// Operation is a pair of implementations of the same logical operation.
// Baseline is mandatory; Accelerated may be nil, in this case the operation
// always takes the baseline path.
type Operation struct {
	Name        string
	Baseline    Fn
	Accelerated Fn
}

// Dispatcher routes gated operations between their accelerated and baseline
// implementations.
//
// For each call it asks the feature gate whether the accelerated path applies
// to the request key, runs the chosen implementation inside a timed
// panic-catching wrapper and records the outcome in the performance monitor.
// A failed accelerated call is counted against the feature and transparently
// retried on the baseline path; only a failure of both implementations reaches
// the caller.
type Dispatcher struct {
	gate    *featuregate.Registry
	monitor *perfmon.Monitor
	pool    *connpool.Pool
	clock   Clock
	logger  log.FieldLogger

	mu  sync.RWMutex
	ops map[string]Operation
}

// Clock abstracts the time source for deterministic testing of operation timing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Opts contains optional parameters for constructing Dispatcher.
type Opts struct {
	// Pool is included in health snapshots when set. The dispatcher itself
	// never touches it, pooled connections belong to the implementations.
	Pool *connpool.Pool

	// Clock substitutes the time source. Used in tests.
	Clock Clock

	// Logger is used for logging fallbacks. Disabled logger by default.
	Logger log.FieldLogger
}

// New creates a new Dispatcher on top of the given gate and monitor.
func New(gate *featuregate.Registry, monitor *perfmon.Monitor) *Dispatcher {
	return NewWithOpts(gate, monitor, Opts{})
}

// NewWithOpts creates a new Dispatcher on top of the given gate and monitor
// with an ability to specify different optional parameters.
func NewWithOpts(gate *featuregate.Registry, monitor *perfmon.Monitor, opts Opts) *Dispatcher {
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Dispatcher{
		gate:    gate,
		monitor: monitor,
		pool:    opts.Pool,
		clock:   clock,
		logger:  logger,
		ops:     make(map[string]Operation),
	}
}

// RegisterOperation adds a named operation for dispatching by name.
// Registering the same name twice replaces the previous pair.
func (d *Dispatcher) RegisterOperation(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("operation name must not be empty")
	}
	if op.Baseline == nil {
		return fmt.Errorf("operation %q: baseline implementation must not be nil", op.Name)
	}
	d.mu.Lock()
	d.ops[op.Name] = op
	d.mu.Unlock()
	return nil
}

// Operations returns the sorted names of all registered operations.
func (d *Dispatcher) Operations() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.ops))
	for name := range d.ops {
		names = append(names, name)
	}
	d.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Dispatch executes the registered operation with the given name.
// See Do for the routing contract.
func (d *Dispatcher) Dispatch(ctx context.Context, name, key string, req interface{}) (interface{}, error) {
	d.mu.RLock()
	op, ok := d.ops[name]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return d.Do(ctx, op, key, req)
}

// Do executes the operation routing it through the feature gate.
//
// The result type and error contract are identical regardless of which
// implementation ran. When the accelerated path fails (error or panic), the
// failure is recorded against the feature and the baseline runs with the same
// request; the accelerated failure is not surfaced. A baseline failure is
// returned to the caller unchanged.
func (d *Dispatcher) Do(ctx context.Context, op Operation, key string, req interface{}) (interface{}, error) {
	if op.Baseline == nil {
		return nil, fmt.Errorf("operation %q: baseline implementation must not be nil", op.Name)
	}

	if op.Accelerated != nil && d.gate.IsEnabled(op.Name, key) {
		res, err := d.invoke(ctx, op.Name, perfmon.VariantAccelerated, op.Accelerated, req)
		if err == nil {
			return res, nil
		}
		d.gate.RecordError(op.Name)
		d.logger.Warn("accelerated path failed, falling back to baseline",
			log.String("operation", op.Name), log.Error(err))
	}

	return d.invoke(ctx, op.Name, perfmon.VariantBaseline, op.Baseline, req)
}

// invoke runs one implementation inside a timed panic-catching wrapper.
func (d *Dispatcher) invoke(
	ctx context.Context, component, variant string, fn Fn, req interface{},
) (res interface{}, err error) {
	start := d.clock.Now()
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("operation %q (%s) panicked: %v", component, variant, p)
		}
		d.monitor.Record(component, variant, d.clock.Now().Sub(start), err == nil, nil)
	}()
	return fn(ctx, req)
}
