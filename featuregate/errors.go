/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package featuregate

import (
	"errors"
	"fmt"
)

// ErrUnknownFeature is returned when the named feature was never registered.
var ErrUnknownFeature = errors.New("unknown feature")

// ConfigError describes a malformed feature configuration value.
// Load reports it instead of failing: the affected feature gets a safe
// disabled default and the rest of the configuration is applied.
type ConfigError struct {
	Feature string
	Source  string // "file" or "env"
	Value   string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("feature %q (%s): invalid value %q: %s", e.Feature, e.Source, e.Value, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
