/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"

	"github.com/acronis/go-accelkit/log"
	"github.com/acronis/go-accelkit/service"
)

// IdleKeyEvicter is implemented by limiters that retain per-key state
// (see TokenBucketLimiter.RemoveIdleKeys and SlidingWindowLimiter.RemoveIdleKeys).
type IdleKeyEvicter interface {
	RemoveIdleKeys() int
}

// EvictionWorker makes a periodic worker that sweeps idle per-key state of the limiter.
// It's supposed to be wrapped into service.WorkerUnit or run in a separate goroutine.
func EvictionWorker(l IdleKeyEvicter, interval time.Duration, logger log.FieldLogger) *service.PeriodicWorker {
	return service.NewPeriodicWorker(service.WorkerFunc(func(ctx context.Context) error {
		l.RemoveIdleKeys()
		return nil
	}), interval, logger)
}
