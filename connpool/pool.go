/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package connpool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/acronis/go-accelkit/log"
)

// ErrPoolExhausted is returned by Pool.Get when all connections for the endpoint
// are in use and the per-endpoint limit does not allow creating a new one.
// It is an expected admission outcome, the caller decides the retry policy.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// ErrHandleNotActive is returned by Pool.Put when the handle is not in the active state,
// which usually means the handle was already returned (double-put is a caller bug).
var ErrHandleNotActive = errors.New("connection handle is not active")

const poolShardsCount = 16 // power of two, see shardFor

// Dial produces the transport object carried by a handle.
// It is injected by the transport layer; the pool itself knows nothing about wire protocols.
type Dial func(ctx context.Context, endpoint string) (io.Closer, error)

// Probe checks whether the endpoint behind a handle is healthy.
// It must respect the context deadline.
type Probe func(ctx context.Context, endpoint string) error

// Clock abstracts the time source for deterministic testing of idle timeouts.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Pool is a sharded pool of reusable per-endpoint connection handles.
//
// Get never blocks waiting for a free handle and operations on endpoints
// mapped to different shards do not contend.
type Pool struct {
	cfg     Config
	dial    Dial
	probe   Probe
	clock   Clock
	logger  log.FieldLogger
	metrics MetricsCollector

	shards [poolShardsCount]*poolShard
}

type poolShard struct {
	mu        sync.Mutex
	endpoints map[string]*endpointState
}

type endpointState struct {
	handles []*Handle
	pending int // handles being dialed right now, counted against the limit
}

// Opts contains optional parameters for constructing Pool.
type Opts struct {
	// Dial produces transport objects for new handles. May be nil,
	// in this case handles carry no transport object.
	Dial Dial

	// Probe is used by health checks. May be nil, in this case health checks always pass.
	Probe Probe

	// Clock substitutes the time source. Used in tests.
	Clock Clock

	// Logger is used for logging pool maintenance events. Disabled logger by default.
	Logger log.FieldLogger

	// MetricsCollector collects pool usage metrics. May be nil.
	MetricsCollector MetricsCollector
}

// New creates a new Pool with the provided configuration.
func New(cfg Config) *Pool {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new Pool with the provided configuration
// and an ability to specify different optional parameters.
func NewWithOpts(cfg Config, opts Opts) *Pool {
	if cfg.MaxConnsPerEndpoint <= 0 {
		cfg.MaxConnsPerEndpoint = DefaultMaxConnsPerEndpoint
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = DefaultHealthCheckTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	metrics := opts.MetricsCollector
	if metrics == nil {
		metrics = disabledMetrics{}
	}
	p := &Pool{cfg: cfg, dial: opts.Dial, probe: opts.Probe, clock: clock, logger: logger, metrics: metrics}
	for i := range p.shards {
		p.shards[i] = &poolShard{endpoints: make(map[string]*endpointState)}
	}
	return p
}

func (p *Pool) shardFor(endpoint string) *poolShard {
	return p.shards[xxhash.Sum64String(endpoint)&(poolShardsCount-1)]
}

// Get returns a connection handle for the endpoint: an idle one if available,
// otherwise a newly created one if the per-endpoint limit permits.
// When the limit is reached, ErrPoolExhausted is returned immediately,
// there is no caller-side queuing.
func (p *Pool) Get(ctx context.Context, endpoint string) (*Handle, error) {
	shard := p.shardFor(endpoint)
	now := p.clock.Now()

	shard.mu.Lock()
	es := shard.endpoints[endpoint]
	if es == nil {
		es = &endpointState{}
		shard.endpoints[endpoint] = es
	}
	for _, h := range es.handles {
		if h.State() == StateIdle {
			h.setState(StateActive)
			h.touch(now)
			shard.mu.Unlock()
			p.metrics.IncReused()
			return h, nil
		}
	}
	if len(es.handles)+es.pending >= p.cfg.MaxConnsPerEndpoint {
		shard.mu.Unlock()
		p.metrics.IncExhausted()
		return nil, ErrPoolExhausted
	}
	es.pending++
	shard.mu.Unlock()

	// Dialing happens outside the shard lock so that a slow dial does not
	// stall checks on other endpoints of the same shard.
	var conn io.Closer
	if p.dial != nil {
		var err error
		if conn, err = p.dial(ctx, endpoint); err != nil {
			shard.mu.Lock()
			es.pending--
			shard.mu.Unlock()
			return nil, fmt.Errorf("dial %s: %w", endpoint, err)
		}
	}
	h := newHandle(endpoint, conn, p.clock.Now())

	shard.mu.Lock()
	es.pending--
	es.handles = append(es.handles, h)
	shard.mu.Unlock()

	p.metrics.IncCreated()
	p.logger.Debug("created pooled connection",
		log.String("endpoint", endpoint), log.String("conn_id", h.ID()))
	return h, nil
}

// Put returns the handle to the pool marking it idle.
// It must be called exactly once per acquisition;
// returning a non-active handle yields ErrHandleNotActive.
func (p *Pool) Put(h *Handle) error {
	shard := p.shardFor(h.Endpoint())
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if h.State() != StateActive {
		return ErrHandleNotActive
	}
	h.touch(p.clock.Now())
	h.setState(StateIdle)
	return nil
}

// Remove removes the handle from the pool and closes its transport object.
// Removing an already removed handle is a no-op.
func (p *Pool) Remove(h *Handle) {
	shard := p.shardFor(h.Endpoint())

	shard.mu.Lock()
	es := shard.endpoints[h.Endpoint()]
	removed := false
	if es != nil {
		for i, ph := range es.handles {
			if ph == h {
				es.handles = append(es.handles[:i], es.handles[i+1:]...)
				removed = true
				break
			}
		}
	}
	shard.mu.Unlock()

	if !removed {
		return
	}
	p.metrics.IncRemoved()
	if err := h.closeConn(); err != nil {
		p.logger.Warn("failed to close removed connection",
			log.String("endpoint", h.Endpoint()), log.String("conn_id", h.ID()), log.Error(err))
	}
}

// Cleanup sweeps all endpoints removing idle handles whose last use is older
// than the configured idle timeout. Active handles are never removed.
// It is safe to run concurrently with Get and Put.
func (p *Pool) Cleanup(ctx context.Context) int {
	deadline := p.clock.Now().Add(-p.cfg.IdleTimeout)
	removed := 0
	for _, shard := range p.shards {
		select {
		case <-ctx.Done():
			return removed
		default:
		}

		var expired []*Handle
		shard.mu.Lock()
		for _, es := range shard.endpoints {
			for _, h := range es.handles {
				if h.State() == StateIdle && h.LastUsedAt().Before(deadline) {
					// Claim the handle so a concurrent Get cannot hand it out
					// while we are removing it.
					h.setState(StateUnhealthy)
					expired = append(expired, h)
				}
			}
		}
		shard.mu.Unlock()

		for _, h := range expired {
			p.Remove(h)
			removed++
		}
	}
	if removed > 0 {
		p.logger.Info("removed idle pooled connections", log.Int("removed", removed))
	}
	return removed
}

// Stats represents a momentary snapshot of pool contents.
// The snapshot is not linearizable with respect to concurrent operations.
type Stats struct {
	Total     int
	Active    int
	Idle      int
	Endpoints map[string]EndpointStats
}

// EndpointStats represents per-endpoint handle counts.
type EndpointStats struct {
	Total  int
	Active int
	Idle   int
}

// GetStats returns a momentary snapshot of total/active/idle handle counts.
func (p *Pool) GetStats() Stats {
	stats := Stats{Endpoints: make(map[string]EndpointStats)}
	for _, shard := range p.shards {
		shard.mu.Lock()
		for endpoint, es := range shard.endpoints {
			eps := stats.Endpoints[endpoint]
			for _, h := range es.handles {
				eps.Total++
				switch h.State() {
				case StateActive:
					eps.Active++
				case StateIdle:
					eps.Idle++
				}
			}
			stats.Endpoints[endpoint] = eps
			stats.Total += eps.Total
			stats.Active += eps.Active
			stats.Idle += eps.Idle
		}
		shard.mu.Unlock()
	}
	return stats
}

// Close removes all handles and closes their transport objects.
// The pool must not be used after Close.
func (p *Pool) Close() {
	for _, shard := range p.shards {
		shard.mu.Lock()
		var all []*Handle
		for _, es := range shard.endpoints {
			all = append(all, es.handles...)
			es.handles = nil
		}
		shard.endpoints = make(map[string]*endpointState)
		shard.mu.Unlock()

		for _, h := range all {
			if err := h.closeConn(); err != nil {
				p.logger.Warn("failed to close pooled connection on pool close",
					log.String("endpoint", h.Endpoint()), log.Error(err))
			}
		}
	}
}
