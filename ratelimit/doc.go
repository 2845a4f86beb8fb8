/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides non-blocking per-key admission control.
//
// Three algorithms are available: token bucket (golang.org/x/time/rate),
// sliding window (github.com/RussellLuo/slidingwindow) and GCRA leaky bucket
// (github.com/throttled/throttled). The token bucket and the sliding window
// may be composed with AND semantics via CompositeLimiter.
//
// Per-key state is created lazily, sharded by key hash to avoid cross-key
// contention, and evicted after a configurable idle TTL either lazily or by a
// periodic sweep (see RemoveIdleKeys and EvictionWorker).
package ratelimit
