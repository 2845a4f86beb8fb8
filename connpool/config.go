/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package connpool

import (
	"fmt"
	"time"

	"github.com/acronis/go-accelkit/config"
)

const cfgDefaultKeyPrefix = "connPool"

const (
	cfgKeyMaxConnsPerEndpoint      = "maxConnsPerEndpoint"
	cfgKeyIdleTimeout              = "idleTimeout"
	cfgKeyCleanupInterval          = "cleanupInterval"
	cfgKeyHealthCheckTimeout       = "healthCheck.timeout"
	cfgKeyHealthCheckRetryAttempts = "healthCheck.retryAttempts"
	cfgKeyHealthCheckRetryInterval = "healthCheck.retryInterval"
)

// Default values.
const (
	DefaultMaxConnsPerEndpoint      = 10
	DefaultIdleTimeout              = time.Minute * 5
	DefaultCleanupInterval          = time.Minute
	DefaultHealthCheckTimeout       = time.Second * 5
	DefaultHealthCheckRetryAttempts = 2
	DefaultHealthCheckRetryInterval = time.Millisecond * 100
)

// Config represents a set of configuration parameters for the connection pool.
type Config struct {
	// MaxConnsPerEndpoint limits the number of handles (existing plus being created) per endpoint.
	MaxConnsPerEndpoint int `mapstructure:"maxConnsPerEndpoint" yaml:"maxConnsPerEndpoint" json:"maxConnsPerEndpoint"`

	// IdleTimeout determines how long an idle handle survives before the cleanup sweep removes it.
	IdleTimeout time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout" json:"idleTimeout"`

	// CleanupInterval determines how often the periodic cleanup sweep runs.
	CleanupInterval time.Duration `mapstructure:"cleanupInterval" yaml:"cleanupInterval" json:"cleanupInterval"`

	// HealthCheckTimeout bounds a single health check including retries.
	HealthCheckTimeout time.Duration `mapstructure:"healthCheckTimeout" yaml:"healthCheckTimeout" json:"healthCheckTimeout"`

	// HealthCheckRetryAttempts determines how many times a failed probe is retried.
	HealthCheckRetryAttempts int `mapstructure:"healthCheckRetryAttempts" yaml:"healthCheckRetryAttempts" json:"healthCheckRetryAttempts"`

	// HealthCheckRetryInterval is the constant delay between probe retries.
	HealthCheckRetryInterval time.Duration `mapstructure:"healthCheckRetryInterval" yaml:"healthCheckRetryInterval" json:"healthCheckRetryInterval"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{
		keyPrefix:                opts.keyPrefix,
		MaxConnsPerEndpoint:      DefaultMaxConnsPerEndpoint,
		IdleTimeout:              DefaultIdleTimeout,
		CleanupInterval:          DefaultCleanupInterval,
		HealthCheckTimeout:       DefaultHealthCheckTimeout,
		HealthCheckRetryAttempts: DefaultHealthCheckRetryAttempts,
		HealthCheckRetryInterval: DefaultHealthCheckRetryInterval,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMaxConnsPerEndpoint, DefaultMaxConnsPerEndpoint)
	dp.SetDefault(cfgKeyIdleTimeout, DefaultIdleTimeout)
	dp.SetDefault(cfgKeyCleanupInterval, DefaultCleanupInterval)
	dp.SetDefault(cfgKeyHealthCheckTimeout, DefaultHealthCheckTimeout)
	dp.SetDefault(cfgKeyHealthCheckRetryAttempts, DefaultHealthCheckRetryAttempts)
	dp.SetDefault(cfgKeyHealthCheckRetryInterval, DefaultHealthCheckRetryInterval)
}

// Set sets connection pool configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.MaxConnsPerEndpoint, err = dp.GetInt(cfgKeyMaxConnsPerEndpoint); err != nil {
		return err
	}
	if c.MaxConnsPerEndpoint <= 0 {
		return dp.WrapKeyErr(cfgKeyMaxConnsPerEndpoint, fmt.Errorf("must be positive, got %d", c.MaxConnsPerEndpoint))
	}
	if c.IdleTimeout, err = dp.GetDuration(cfgKeyIdleTimeout); err != nil {
		return err
	}
	if c.CleanupInterval, err = dp.GetDuration(cfgKeyCleanupInterval); err != nil {
		return err
	}
	if c.HealthCheckTimeout, err = dp.GetDuration(cfgKeyHealthCheckTimeout); err != nil {
		return err
	}
	if c.HealthCheckRetryAttempts, err = dp.GetInt(cfgKeyHealthCheckRetryAttempts); err != nil {
		return err
	}
	if c.HealthCheckRetryInterval, err = dp.GetDuration(cfgKeyHealthCheckRetryInterval); err != nil {
		return err
	}
	return nil
}
