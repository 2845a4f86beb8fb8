/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package accel

import (
	"github.com/acronis/go-accelkit/config"
	"github.com/acronis/go-accelkit/featuregate"
	"github.com/acronis/go-accelkit/perfmon"
)

// Config aggregates all sections of the acceleration configuration file:
// feature entries with the fallback policy and the monitoring section.
type Config struct {
	Features   *featuregate.Config
	Monitoring *perfmon.Config
}

var _ config.Config = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{
		Features:   featuregate.NewConfig(),
		Monitoring: perfmon.NewConfig(),
	}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Features:   featuregate.NewDefaultConfig(),
		Monitoring: perfmon.NewDefaultConfig(),
	}
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	c.Features.SetProviderDefaults(dp)
	c.Monitoring.SetProviderDefaults(dp)
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	if err := c.Features.Set(dp); err != nil {
		return err
	}
	return c.Monitoring.Set(dp)
}

// LoadConfigFromFile reads the JSON configuration file and returns the parsed sections.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := config.NewLoader(config.NewViperAdapter()).LoadFromFile(path, config.DataTypeJSON, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
