/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-accelkit/config"
)

func TestRateValueUnmarshal(t *testing.T) {
	tests := []struct {
		text    string
		want    RateValue
		wantErr bool
	}{
		{text: "100/s", want: RateValue{Count: 100, Duration: time.Second}},
		{text: "5/m", want: RateValue{Count: 5, Duration: time.Minute}},
		{text: "1/h", want: RateValue{Count: 1, Duration: time.Hour}},
		{text: "10/500ms", want: RateValue{Count: 10, Duration: time.Millisecond * 500}},
		{text: "", want: RateValue{}},
		{text: "100", wantErr: true},
		{text: "x/s", wantErr: true},
		{text: "-5/s", wantErr: true},
		{text: "0/s", wantErr: true},
		{text: "5/x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var rv RateValue
			err := rv.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, rv)
		})
	}
}

func TestRateValueMarshalRoundTrip(t *testing.T) {
	rv := RateValue{Count: 42, Duration: time.Minute}

	jsonData, err := json.Marshal(rv)
	require.NoError(t, err)
	require.Equal(t, `"42/m"`, string(jsonData))
	var fromJSON RateValue
	require.NoError(t, json.Unmarshal(jsonData, &fromJSON))
	require.Equal(t, rv, fromJSON)

	yamlData, err := yaml.Marshal(rv)
	require.NoError(t, err)
	var fromYAML RateValue
	require.NoError(t, yaml.Unmarshal(yamlData, &fromYAML))
	require.Equal(t, rv, fromYAML)
}

func TestConfig(t *testing.T) {
	load := func(t *testing.T, yamlText string) (*Config, error) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(yamlText), config.DataTypeYAML, cfg)
		return cfg, err
	}

	t.Run("full config is parsed", func(t *testing.T) {
		cfg, err := load(t, `
rateLimit:
  alg: token_bucket_and_sliding_window
  rate: 60/m
  maxBurst: 6
  maxKeys: 500
  keyTtl: 5m
`)
		require.NoError(t, err)
		require.Equal(t, AlgTokenBucketAndSlidingWindow, cfg.Alg)
		require.Equal(t, RateValue{Count: 60, Duration: time.Minute}, cfg.Rate)
		require.Equal(t, 6, cfg.MaxBurst)
		require.Equal(t, 500, cfg.MaxKeys)
		require.Equal(t, time.Minute*5, cfg.KeyTTL)

		limiter, err := cfg.MakeLimiter()
		require.NoError(t, err)
		require.IsType(t, &CompositeLimiter{}, limiter)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		cfg, err := load(t, `
rateLimit:
  rate: 100/s
`)
		require.NoError(t, err)
		require.Equal(t, AlgTokenBucket, cfg.Alg)
		require.Equal(t, DefaultMaxKeys, cfg.MaxKeys)
		require.Equal(t, DefaultKeyTTL, cfg.KeyTTL)

		limiter, err := cfg.MakeLimiter()
		require.NoError(t, err)
		require.IsType(t, &TokenBucketLimiter{}, limiter)
	})

	t.Run("missing rate is an error", func(t *testing.T) {
		_, err := load(t, `
rateLimit:
  alg: token_bucket
`)
		require.ErrorContains(t, err, "rate")
	})

	t.Run("unknown alg is an error", func(t *testing.T) {
		_, err := load(t, `
rateLimit:
  alg: magic
  rate: 1/s
`)
		require.Error(t, err)
	})

	t.Run("malformed rate is an error", func(t *testing.T) {
		_, err := load(t, `
rateLimit:
  rate: lots
`)
		require.ErrorContains(t, err, "rate")
	})

	t.Run("alg selects the limiter implementation", func(t *testing.T) {
		algs := map[Alg]interface{}{
			AlgTokenBucket:   &TokenBucketLimiter{},
			AlgSlidingWindow: &SlidingWindowLimiter{},
			AlgLeakyBucket:   &LeakyBucketLimiter{},
		}
		for alg, wantType := range algs {
			cfg := NewDefaultConfig()
			cfg.Alg = alg
			cfg.Rate = RateValue{Count: 10, Duration: time.Second}
			limiter, err := cfg.MakeLimiter()
			require.NoError(t, err)
			require.IsType(t, wantType, limiter)
		}
	})
}
