/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package featuregate tracks named capabilities with deterministic
// percentage-based traffic splitting and error-triggered circuit breaking.
//
// A feature is configured with a Mode (disabled, enabled, "canary:N" or
// "rollout:N"). Percentage modes hash the request key, so the same
// (feature, key) pair always lands on the same side of the split.
// Recorded errors trip the feature into a forced-disabled state once they
// reach the threshold; Reset re-opens the circuit.
//
// Configuration is layered: explicit runtime overrides beat environment
// variables, which beat the configuration file, which beats built-in defaults.
package featuregate
