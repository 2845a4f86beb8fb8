/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package connpool

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-accelkit/config"
)

func TestConfig(t *testing.T) {
	t.Run("full config is parsed", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
connPool:
  maxConnsPerEndpoint: 32
  idleTimeout: 90s
  cleanupInterval: 30s
  healthCheck:
    timeout: 2s
    retryAttempts: 3
    retryInterval: 50ms
`), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 32, cfg.MaxConnsPerEndpoint)
		require.Equal(t, time.Second*90, cfg.IdleTimeout)
		require.Equal(t, time.Second*30, cfg.CleanupInterval)
		require.Equal(t, time.Second*2, cfg.HealthCheckTimeout)
		require.Equal(t, 3, cfg.HealthCheckRetryAttempts)
		require.Equal(t, time.Millisecond*50, cfg.HealthCheckRetryInterval)
	})

	t.Run("defaults are applied", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`connPool: {}`), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, DefaultMaxConnsPerEndpoint, cfg.MaxConnsPerEndpoint)
		require.Equal(t, DefaultIdleTimeout, cfg.IdleTimeout)
		require.Equal(t, DefaultHealthCheckTimeout, cfg.HealthCheckTimeout)
	})

	t.Run("non-positive limit is an error", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
connPool:
  maxConnsPerEndpoint: 0
`), config.DataTypeYAML, cfg)
		require.ErrorContains(t, err, "maxConnsPerEndpoint")
	})
}
