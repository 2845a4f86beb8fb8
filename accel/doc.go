/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package accel composes the feature gate, the performance monitor and
// optionally the connection pool into a dispatcher for gated operations.
//
// Each operation is a pair of implementations, baseline and accelerated,
// injected by the host. The dispatcher decides per request which one runs,
// times it, records the outcome and falls back to the baseline when the
// accelerated path fails.
package accel
