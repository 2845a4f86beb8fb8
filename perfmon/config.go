/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package perfmon

import (
	"fmt"

	"github.com/acronis/go-accelkit/config"
)

const (
	cfgKeyEnabled             = "monitoring.enabled"
	cfgKeySampleRate          = "monitoring.sample_rate"
	cfgKeyMaxSamplesPerSeries = "monitoring.max_samples_per_series"
)

// DefaultSampleRate retains every observation's latency sample.
const DefaultSampleRate = 1.0

// Config represents the monitoring part of the configuration file.
type Config struct {
	// Enabled turns recording on. A monitor built from a disabled config
	// accepts records as no-ops.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// SampleRate is the fraction of records whose latency sample is retained, in (0, 1].
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`

	// MaxSamplesPerSeries bounds the latency ring per (component, operation) series.
	MaxSamplesPerSeries int `mapstructure:"max_samples_per_series" yaml:"max_samples_per_series" json:"max_samples_per_series"`
}

var _ config.Config = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:             true,
		SampleRate:          DefaultSampleRate,
		MaxSamplesPerSeries: DefaultMaxSamplesPerSeries,
	}
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, true)
	dp.SetDefault(cfgKeySampleRate, DefaultSampleRate)
	dp.SetDefault(cfgKeyMaxSamplesPerSeries, DefaultMaxSamplesPerSeries)
}

// Set sets monitoring configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.SampleRate, err = dp.GetFloat64(cfgKeySampleRate); err != nil {
		return err
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		return dp.WrapKeyErr(cfgKeySampleRate, fmt.Errorf("must be in (0, 1], got %v", c.SampleRate))
	}
	if c.MaxSamplesPerSeries, err = dp.GetInt(cfgKeyMaxSamplesPerSeries); err != nil {
		return err
	}
	if c.MaxSamplesPerSeries < 0 {
		return dp.WrapKeyErr(cfgKeyMaxSamplesPerSeries, fmt.Errorf("must not be negative, got %d", c.MaxSamplesPerSeries))
	}
	return nil
}

// MakeMonitor constructs a Monitor described by the Config.
func (c *Config) MakeMonitor() *Monitor {
	return c.MakeMonitorWithOpts(Opts{})
}

// MakeMonitorWithOpts constructs a Monitor described by the Config
// with an ability to specify different optional parameters.
// Sample rate and ring size from the config take precedence over opts.
func (c *Config) MakeMonitorWithOpts(opts Opts) *Monitor {
	if c.SampleRate > 0 {
		opts.SampleRate = c.SampleRate
	}
	if c.MaxSamplesPerSeries > 0 {
		opts.MaxSamplesPerSeries = c.MaxSamplesPerSeries
	}
	m := NewMonitorWithOpts(opts)
	m.SetEnabled(c.Enabled)
	return m
}
