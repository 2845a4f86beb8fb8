/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil provides helpers for tests: a controllable clock
// and assertions over Prometheus metrics.
package testutil

type tHelper interface {
	Helper()
}
