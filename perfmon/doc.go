/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package perfmon aggregates latency and error statistics of monitored
// operations, compares implementation variants and exports snapshots.
//
// Memory is bounded: each (component, operation) series keeps exact counters
// plus a fixed-size ring of recent latency samples for percentile computation.
// Recording never blocks and never fails the caller's operation.
package perfmon
