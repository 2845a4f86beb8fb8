/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package featuregate

import (
	"fmt"
	"os"
	"strings"

	"github.com/acronis/go-accelkit/config"
	"github.com/acronis/go-accelkit/log"
)

// DefaultEnvVarsPrefix is a default prefix of environment variables overriding feature modes.
const DefaultEnvVarsPrefix = "ACCELKIT"

// Reserved environment variable suffixes.
const (
	envKeyGlobalEnabled = "ENABLED"        // global kill switch
	envKeyConfigPath    = "FEATURE_CONFIG" // path to the feature configuration file
)

const (
	cfgKeyFeatures                 = "features"
	cfgKeyFallbackAutoDisable      = "fallback.auto_disable_on_errors"
	cfgKeyFallbackMaxErrors        = "fallback.max_errors_before_disable"
	cfgDefaultAutoDisableOnErrors  = true
	cfgDefaultMaxErrorsBefDisabled = DefaultErrorThreshold
)

// FeatureConfig represents a single feature entry of the configuration file.
type FeatureConfig struct {
	// Enabled turns the feature on. A disabled feature ignores the rollout percentage.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// RolloutPercentage limits the feature to a deterministic percentage of keys.
	// Treated as 100 (fully enabled) when absent.
	RolloutPercentage *int `mapstructure:"rollout_percentage" yaml:"rollout_percentage" json:"rollout_percentage"`

	// Config carries opaque feature-specific parameters. The gate does not interpret them.
	Config map[string]interface{} `mapstructure:"config" yaml:"config" json:"config"`
}

// Mode derives the gating mode from the feature entry.
// The second result is non-nil when the rollout percentage is out of range,
// in this case a safe disabled mode is returned.
func (fc FeatureConfig) Mode() (Mode, error) {
	if !fc.Enabled {
		return Disabled, nil
	}
	if fc.RolloutPercentage == nil || *fc.RolloutPercentage >= 100 {
		return Enabled, nil
	}
	if *fc.RolloutPercentage < 0 {
		return Disabled, fmt.Errorf("rollout percentage %d out of range [0, 100]", *fc.RolloutPercentage)
	}
	return Rollout(*fc.RolloutPercentage), nil
}

// Config represents the feature gating part of the configuration file:
// the per-feature entries plus the circuit-breaking fallback policy.
type Config struct {
	Features map[string]FeatureConfig `mapstructure:"features" yaml:"features" json:"features"`

	// AutoDisableOnErrors enables circuit breaking.
	AutoDisableOnErrors bool `mapstructure:"auto_disable_on_errors" yaml:"auto_disable_on_errors" json:"auto_disable_on_errors"`

	// MaxErrorsBeforeDisable is the error threshold tripping the circuit.
	MaxErrorsBeforeDisable int `mapstructure:"max_errors_before_disable" yaml:"max_errors_before_disable" json:"max_errors_before_disable"`
}

var _ config.Config = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		AutoDisableOnErrors:    cfgDefaultAutoDisableOnErrors,
		MaxErrorsBeforeDisable: cfgDefaultMaxErrorsBefDisabled,
	}
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyFallbackAutoDisable, cfgDefaultAutoDisableOnErrors)
	dp.SetDefault(cfgKeyFallbackMaxErrors, cfgDefaultMaxErrorsBefDisabled)
}

// Set sets feature gating configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	if err := dp.UnmarshalKey(cfgKeyFeatures, &c.Features); err != nil {
		return dp.WrapKeyErr(cfgKeyFeatures, err)
	}
	var err error
	if c.AutoDisableOnErrors, err = dp.GetBool(cfgKeyFallbackAutoDisable); err != nil {
		return err
	}
	if c.MaxErrorsBeforeDisable, err = dp.GetInt(cfgKeyFallbackMaxErrors); err != nil {
		return err
	}
	if c.MaxErrorsBeforeDisable <= 0 {
		return dp.WrapKeyErr(cfgKeyFallbackMaxErrors, fmt.Errorf("must be positive, got %d", c.MaxErrorsBeforeDisable))
	}
	return nil
}

// MakeRegistry constructs a Registry with all configured features registered.
// Malformed entries are reported as ConfigError values and registered disabled;
// the registry itself is always usable.
func (c *Config) MakeRegistry() (*Registry, []error) {
	return c.MakeRegistryWithOpts(RegistryOpts{})
}

// MakeRegistryWithOpts constructs a Registry with all configured features registered
// and an ability to specify different optional parameters.
// The error threshold from opts takes precedence over the configured fallback policy.
func (c *Config) MakeRegistryWithOpts(opts RegistryOpts) (*Registry, []error) {
	if opts.ErrorThreshold == 0 {
		if c.AutoDisableOnErrors {
			opts.ErrorThreshold = c.MaxErrorsBeforeDisable
		} else {
			opts.ErrorThreshold = -1
		}
	}
	registry := NewRegistryWithOpts(opts)
	var errs []error
	for name, fc := range c.Features {
		mode, err := fc.Mode()
		if err != nil {
			errs = append(errs, &ConfigError{Feature: name, Source: "file",
				Value: fmt.Sprintf("rollout_percentage=%d", *fc.RolloutPercentage), Err: err})
		}
		registry.Register(name, mode)
	}
	return registry, errs
}

// EnvOverrides holds the feature gating overrides extracted from environment variables.
type EnvOverrides struct {
	// GlobalEnabled is the kill switch value, nil when the variable is not set.
	GlobalEnabled *bool

	// ConfigPath is the configuration file path, empty when the variable is not set.
	ConfigPath string

	// Modes contains per-feature mode overrides keyed by feature name.
	Modes map[string]Mode

	// Errs collects malformed variables (ConfigError values). Malformed overrides are skipped.
	Errs []error
}

// ParseEnv extracts feature overrides from the given environment
// ("<PREFIX>_<FEATURE>" mode values, "<PREFIX>_ENABLED" kill switch,
// "<PREFIX>_FEATURE_CONFIG" file path). Feature names are matched case-insensitively:
// the variable suffix is lowercased.
func ParseEnv(envVarsPrefix string, environ []string) EnvOverrides {
	if envVarsPrefix == "" {
		envVarsPrefix = DefaultEnvVarsPrefix
	}
	prefix := envVarsPrefix + "_"
	overrides := EnvOverrides{Modes: make(map[string]Mode)}
	for _, kv := range environ {
		name, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(name, prefix) {
			continue
		}
		suffix := strings.TrimPrefix(name, prefix)
		switch suffix {
		case envKeyConfigPath:
			overrides.ConfigPath = value
			continue
		case envKeyGlobalEnabled:
			mode, err := ParseMode(value)
			if err != nil || (mode.Kind != ModeEnabled && mode.Kind != ModeDisabled) {
				overrides.Errs = append(overrides.Errs, &ConfigError{Feature: suffix, Source: "env", Value: value,
					Err: fmt.Errorf("kill switch accepts only true|false|enabled|disabled")})
				continue
			}
			enabled := mode.Kind == ModeEnabled
			overrides.GlobalEnabled = &enabled
			continue
		}
		feature := strings.ToLower(suffix)
		mode, err := ParseMode(value)
		if err != nil {
			overrides.Errs = append(overrides.Errs, &ConfigError{Feature: feature, Source: "env", Value: value, Err: err})
			continue
		}
		overrides.Modes[feature] = mode
	}
	return overrides
}

// LoadOpts contains optional parameters for Load.
type LoadOpts struct {
	// EnvVarsPrefix is the prefix of environment variables carrying overrides.
	// DefaultEnvVarsPrefix is used when empty.
	EnvVarsPrefix string

	// Environ substitutes the process environment. Used in tests.
	Environ []string

	// ConfigPath points to the configuration file. The "<PREFIX>_FEATURE_CONFIG"
	// environment variable takes precedence when set. Empty means no file.
	ConfigPath string

	// Overrides are explicit runtime mode overrides, the highest precedence level.
	Overrides map[string]Mode

	// RegistryOpts are passed through to the registry constructor.
	RegistryOpts RegistryOpts
}

// Load builds a Registry applying all configuration levels in precedence order:
// explicit runtime override > environment variable > config file > built-in default.
//
// Configuration problems never prevent loading: each malformed value is returned
// as a ConfigError (and logged), and the affected feature falls back to a safe
// disabled mode.
func Load(opts LoadOpts) (*Registry, []error) {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	env := ParseEnv(opts.EnvVarsPrefix, environ)
	errs := env.Errs

	cfg := NewDefaultConfig()
	path := opts.ConfigPath
	if env.ConfigPath != "" {
		path = env.ConfigPath
	}
	if path != "" {
		if err := config.NewLoader(config.NewViperAdapter()).LoadFromFile(path, config.DataTypeJSON, cfg); err != nil {
			errs = append(errs, fmt.Errorf("load feature config %q: %w", path, err))
			cfg = NewDefaultConfig()
		}
	}

	registry, cfgErrs := cfg.MakeRegistryWithOpts(opts.RegistryOpts)
	errs = append(errs, cfgErrs...)

	for name, mode := range env.Modes {
		registry.Register(name, mode)
	}
	for name, mode := range opts.Overrides {
		registry.Register(name, mode)
	}
	if env.GlobalEnabled != nil {
		registry.SetGlobalEnabled(*env.GlobalEnabled)
	}

	if logger := opts.RegistryOpts.Logger; logger != nil {
		for _, err := range errs {
			logger.Warn("feature configuration problem, safe default substituted", log.Error(err))
		}
	}
	return registry, errs
}
