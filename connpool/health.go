/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package connpool

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-accelkit/log"
	"github.com/acronis/go-accelkit/retry"
	"github.com/acronis/go-accelkit/service"
)

// HealthCheck probes the endpoint behind the handle.
// The probe runs under the configured timeout and is retried with a constant
// backoff; a hung probe is abandoned when the deadline fires and counts as a
// failure. On failure the handle is marked unhealthy and removed from the pool.
func (p *Pool) HealthCheck(ctx context.Context, h *Handle) error {
	if p.probe == nil {
		return nil
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.HealthCheckTimeout)
	defer cancel()

	policy := retry.NewConstantBackoffPolicy(p.cfg.HealthCheckRetryInterval, p.cfg.HealthCheckRetryAttempts)
	err := retry.DoWithRetry(probeCtx, policy, nil, nil, func(ctx context.Context) error {
		return p.probe(ctx, h.Endpoint())
	})
	if err == nil {
		return nil
	}

	h.setState(StateUnhealthy)
	p.Remove(h)
	p.logger.Warn("unhealthy connection removed from pool",
		log.String("endpoint", h.Endpoint()), log.String("conn_id", h.ID()), log.Error(err))
	return fmt.Errorf("health check %s: %w", h.Endpoint(), err)
}

// HealthSweep health-checks all idle handles.
// Unhealthy handles are removed; active handles are not probed.
// It returns the number of removed handles.
func (p *Pool) HealthSweep(ctx context.Context) int {
	if p.probe == nil {
		return 0
	}
	removed := 0
	for _, shard := range p.shards {
		var claimed []*Handle
		shard.mu.Lock()
		for _, es := range shard.endpoints {
			for _, h := range es.handles {
				if h.State() == StateIdle {
					// Claim the handle so a concurrent Get cannot hand it out
					// while it is being probed.
					h.setState(StateUnhealthy)
					claimed = append(claimed, h)
				}
			}
		}
		shard.mu.Unlock()

		for _, h := range claimed {
			select {
			case <-ctx.Done():
				h.setState(StateIdle)
				continue
			default:
			}
			if err := p.HealthCheck(ctx, h); err != nil {
				removed++
				continue
			}
			h.setState(StateIdle)
		}
	}
	return removed
}

// CleanupWorker makes a periodic worker that sweeps idle handles past the idle timeout.
// It's supposed to be wrapped into service.WorkerUnit or run in a separate goroutine.
func (p *Pool) CleanupWorker(interval time.Duration, logger log.FieldLogger) *service.PeriodicWorker {
	return service.NewPeriodicWorker(service.WorkerFunc(func(ctx context.Context) error {
		p.Cleanup(ctx)
		return nil
	}), interval, logger)
}

// HealthSweepWorker makes a periodic worker that health-checks idle handles.
// It's supposed to be wrapped into service.WorkerUnit or run in a separate goroutine.
func (p *Pool) HealthSweepWorker(interval time.Duration, logger log.FieldLogger) *service.PeriodicWorker {
	return service.NewPeriodicWorker(service.WorkerFunc(func(ctx context.Context) error {
		p.HealthSweep(ctx)
		return nil
	}), interval, logger)
}
