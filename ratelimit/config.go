/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acronis/go-accelkit/config"
)

const cfgDefaultKeyPrefix = "rateLimit"

const (
	cfgKeyAlg      = "alg"
	cfgKeyRate     = "rate"
	cfgKeyMaxBurst = "maxBurst"
	cfgKeyMaxKeys  = "maxKeys"
	cfgKeyKeyTTL   = "keyTtl"
)

// Alg represents a rate-limiting algorithm.
type Alg string

// Supported rate-limiting algorithms.
const (
	AlgTokenBucket   Alg = "token_bucket"
	AlgSlidingWindow Alg = "sliding_window"
	AlgLeakyBucket   Alg = "leaky_bucket"

	// AlgTokenBucketAndSlidingWindow composes the token bucket and the sliding
	// window with AND semantics (see CompositeLimiter).
	AlgTokenBucketAndSlidingWindow Alg = "token_bucket_and_sliding_window"
)

// DefaultMaxKeys is a default value of maximum tracked keys number.
const DefaultMaxKeys = 10000

// RateValue represents a value for the rate ("N/s", "N/m", "N/h" grammar).
type RateValue Rate

// String returns a string representation of the rate value.
// Implements fmt.Stringer interface.
func (rv RateValue) String() string {
	return Rate(rv).String()
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (rv *RateValue) UnmarshalText(text []byte) error {
	return rv.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (rv *RateValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (rv *RateValue) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

// MarshalText implements the encoding.TextMarshaler interface.
func (rv RateValue) MarshalText() ([]byte, error) {
	return []byte(rv.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (rv RateValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(rv.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (rv RateValue) MarshalYAML() (interface{}, error) {
	return rv.String(), nil
}

func (rv *RateValue) unmarshal(rateStr string) error {
	if rateStr == "" {
		*rv = RateValue{}
		return nil
	}
	parts := strings.SplitN(rateStr, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid rate format %q, should be N/{s|m|h}", rateStr)
	}
	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count <= 0 {
		return fmt.Errorf("invalid rate count in %q", rateStr)
	}
	var dur time.Duration
	switch strings.TrimSpace(parts[1]) {
	case "s":
		dur = time.Second
	case "m":
		dur = time.Minute
	case "h":
		dur = time.Hour
	default:
		if dur, err = time.ParseDuration(strings.TrimSpace(parts[1])); err != nil {
			return fmt.Errorf("invalid rate duration in %q", rateStr)
		}
	}
	*rv = RateValue{Count: count, Duration: dur}
	return nil
}

// Config represents a set of configuration parameters for rate limiting.
type Config struct {
	// Alg determines which rate-limiting algorithm will be used.
	Alg Alg `mapstructure:"alg" yaml:"alg" json:"alg"`

	// Rate determines the allowed rate ("N/s", "N/m", "N/h").
	Rate RateValue `mapstructure:"rate" yaml:"rate" json:"rate"`

	// MaxBurst determines the token bucket capacity. Rate.Count/10 (at least 1) when not set.
	MaxBurst int `mapstructure:"maxBurst" yaml:"maxBurst" json:"maxBurst"`

	// MaxKeys determines the maximum number of keys with retained limiter state.
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`

	// KeyTTL determines how long idle per-key state is retained.
	KeyTTL time.Duration `mapstructure:"keyTtl" yaml:"keyTtl" json:"keyTtl"`

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
		keyPrefix: opts.keyPrefix,
		Alg:       AlgTokenBucket,
		MaxKeys:   DefaultMaxKeys,
		KeyTTL:    DefaultKeyTTL,
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

var availableAlgs = []string{
	string(AlgTokenBucket), string(AlgSlidingWindow), string(AlgLeakyBucket), string(AlgTokenBucketAndSlidingWindow),
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAlg, string(AlgTokenBucket))
	dp.SetDefault(cfgKeyMaxKeys, DefaultMaxKeys)
	dp.SetDefault(cfgKeyKeyTTL, DefaultKeyTTL)
}

// Set sets rate limiting configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	algStr, err := dp.GetStringFromSet(cfgKeyAlg, availableAlgs, false)
	if err != nil {
		return err
	}
	c.Alg = Alg(algStr)

	rateStr, err := dp.GetString(cfgKeyRate)
	if err != nil {
		return err
	}
	if err = c.Rate.unmarshal(rateStr); err != nil {
		return dp.WrapKeyErr(cfgKeyRate, err)
	}
	if c.Rate.Count <= 0 {
		return dp.WrapKeyErr(cfgKeyRate, fmt.Errorf("rate must be specified and positive"))
	}

	if c.MaxBurst, err = dp.GetInt(cfgKeyMaxBurst); err != nil {
		return err
	}
	if c.MaxKeys, err = dp.GetInt(cfgKeyMaxKeys); err != nil {
		return err
	}
	if c.KeyTTL, err = dp.GetDuration(cfgKeyKeyTTL); err != nil {
		return err
	}
	return nil
}

// MakeLimiter constructs a Limiter described by the Config.
func (c *Config) MakeLimiter() (Limiter, error) {
	return c.MakeLimiterWithOpts(TokenBucketLimiterOpts{})
}

// MakeLimiterWithOpts constructs a Limiter described by the Config
// with an ability to specify different optional parameters.
// Opts are shared by the token bucket and sliding window stages.
func (c *Config) MakeLimiterWithOpts(opts TokenBucketLimiterOpts) (Limiter, error) {
	maxRate := Rate(c.Rate)
	switch c.Alg {
	case AlgTokenBucket, "":
		return NewTokenBucketLimiterWithOpts(maxRate, c.MaxBurst, c.MaxKeys, opts)
	case AlgSlidingWindow:
		return NewSlidingWindowLimiterWithOpts(maxRate, c.MaxKeys, SlidingWindowLimiterOpts{
			Clock: opts.Clock, KeyTTL: opts.KeyTTL, MetricsCollector: opts.MetricsCollector})
	case AlgLeakyBucket:
		return NewLeakyBucketLimiter(maxRate, c.MaxBurst, c.MaxKeys)
	case AlgTokenBucketAndSlidingWindow:
		bucket, err := NewTokenBucketLimiterWithOpts(maxRate, c.MaxBurst, c.MaxKeys, opts)
		if err != nil {
			return nil, err
		}
		window, err := NewSlidingWindowLimiterWithOpts(maxRate, c.MaxKeys, SlidingWindowLimiterOpts{
			Clock: opts.Clock, KeyTTL: opts.KeyTTL, MetricsCollector: opts.MetricsCollector})
		if err != nil {
			return nil, err
		}
		return NewCompositeLimiter(bucket, window)
	}
	return nil, fmt.Errorf("unknown rate limit alg %q", c.Alg)
}
