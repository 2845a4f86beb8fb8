/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

type appConfig struct {
	Workers  int
	CacheMax ByteSize
}

func (c *appConfig) KeyPrefix() string {
	return "app"
}

func (c *appConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("workers", 4)
}

func (c *appConfig) Set(dp DataProvider) error {
	var err error
	if c.Workers, err = dp.GetInt("workers"); err != nil {
		return err
	}
	if c.CacheMax, err = dp.GetByteSize("cacheMax"); err != nil {
		return err
	}
	return nil
}

func TestLoaderLoadFromReader(t *testing.T) {
	t.Run("values are parsed under the key prefix", func(t *testing.T) {
		cfg := &appConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
app:
  workers: 16
  cacheMax: 100MB
`), DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 16, cfg.Workers)
		require.Equal(t, ByteSize(100*1024*1024), cfg.CacheMax)
	})

	t.Run("defaults apply when keys are missing", func(t *testing.T) {
		cfg := &appConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`app: {}`), DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 4, cfg.Workers)
		require.Equal(t, ByteSize(0), cfg.CacheMax)
	})

	t.Run("JSON documents are supported", func(t *testing.T) {
		cfg := &appConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"app": {"workers": 2}}`), DataTypeJSON, cfg)
		require.NoError(t, err)
		require.Equal(t, 2, cfg.Workers)
	})

	t.Run("environment variables override file values", func(t *testing.T) {
		t.Setenv("TESTACCEL_APP_WORKERS", "32")
		cfg := &appConfig{}
		err := NewDefaultLoader("testaccel").LoadFromReader(bytes.NewBufferString(`
app:
  workers: 16
`), DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, 32, cfg.Workers)
	})

	t.Run("malformed value is an error with the key in the message", func(t *testing.T) {
		cfg := &appConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
app:
  workers: many
`), DataTypeYAML, cfg)
		require.ErrorContains(t, err, "workers")
	})
}
