/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func readCounter(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	return promtestutil.ToFloat64(c)
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLRUCache(t *testing.T) {
	t.Run("add and get", func(t *testing.T) {
		cache, err := New[string, int](10, nil)
		require.NoError(t, err)

		cache.Add("a", 1)
		cache.Add("b", 2)

		val, ok := cache.Get("a")
		require.True(t, ok)
		require.Equal(t, 1, val)
		_, ok = cache.Get("missing")
		require.False(t, ok)
		require.Equal(t, 2, cache.Len())
	})

	t.Run("oldest entry is evicted when full", func(t *testing.T) {
		cache, err := New[string, int](2, nil)
		require.NoError(t, err)

		cache.Add("a", 1)
		cache.Add("b", 2)
		_, _ = cache.Get("a") // "a" becomes the most recently used
		cache.Add("c", 3)

		_, ok := cache.Get("b")
		require.False(t, ok)
		_, ok = cache.Get("a")
		require.True(t, ok)
		require.Equal(t, 2, cache.Len())
	})

	t.Run("GetOrAdd creates the value once", func(t *testing.T) {
		cache, err := New[string, *int](10, nil)
		require.NoError(t, err)

		calls := 0
		provider := func() *int {
			calls++
			v := 42
			return &v
		}
		first, exists := cache.GetOrAdd("k", provider)
		require.False(t, exists)
		second, exists := cache.GetOrAdd("k", provider)
		require.True(t, exists)
		require.Same(t, first, second)
		require.Equal(t, 1, calls)
	})

	t.Run("expired entries are not returned", func(t *testing.T) {
		clock := &manualClock{now: time.Unix(1700000000, 0)}
		cache, err := NewWithOpts[string, int](10, nil, Options{DefaultTTL: time.Minute, Now: clock.Now})
		require.NoError(t, err)

		cache.Add("a", 1)
		clock.Advance(time.Second * 59)
		_, ok := cache.Get("a")
		require.True(t, ok)

		clock.Advance(time.Second * 2)
		_, ok = cache.Get("a")
		require.False(t, ok)
	})

	t.Run("sliding TTL treats the TTL as an idle timeout", func(t *testing.T) {
		clock := &manualClock{now: time.Unix(1700000000, 0)}
		cache, err := NewWithOpts[string, int](10, nil, Options{
			DefaultTTL: time.Minute, SlidingTTL: true, Now: clock.Now})
		require.NoError(t, err)

		cache.Add("a", 1)
		for i := 0; i < 3; i++ {
			clock.Advance(time.Second * 45)
			_, ok := cache.Get("a")
			require.True(t, ok, "access #%d should refresh the TTL", i+1)
		}

		clock.Advance(time.Second * 61)
		_, ok := cache.Get("a")
		require.False(t, ok)
	})

	t.Run("RemoveExpired sweeps only expired entries", func(t *testing.T) {
		clock := &manualClock{now: time.Unix(1700000000, 0)}
		cache, err := NewWithOpts[string, int](10, nil, Options{DefaultTTL: time.Minute, Now: clock.Now})
		require.NoError(t, err)

		cache.Add("old", 1)
		clock.Advance(time.Second * 45)
		cache.Add("fresh", 2)
		clock.Advance(time.Second * 30)

		require.Equal(t, 1, cache.RemoveExpired())
		require.Equal(t, 1, cache.Len())
		_, ok := cache.Get("fresh")
		require.True(t, ok)
	})

	t.Run("Remove and Purge", func(t *testing.T) {
		cache, err := New[string, int](10, nil)
		require.NoError(t, err)

		cache.Add("a", 1)
		cache.Add("b", 2)
		require.True(t, cache.Remove("a"))
		require.False(t, cache.Remove("a"))
		cache.Purge()
		require.Equal(t, 0, cache.Len())
	})

	t.Run("invalid parameters are rejected", func(t *testing.T) {
		_, err := New[string, int](0, nil)
		require.Error(t, err)
		_, err = NewWithOpts[string, int](10, nil, Options{DefaultTTL: -time.Second})
		require.Error(t, err)
	})
}

func TestLRUCacheMetrics(t *testing.T) {
	metrics := NewPrometheusMetrics()
	cache, err := New[string, int](2, metrics)
	require.NoError(t, err)

	cache.Add("a", 1)
	cache.Add("b", 2)
	_, _ = cache.Get("a")
	_, _ = cache.Get("missing")
	cache.Add("c", 3) // evicts "b"

	require.Equal(t, 1.0, readCounter(t, metrics.HitsTotal))
	require.Equal(t, 1.0, readCounter(t, metrics.MissesTotal))
	require.Equal(t, 1.0, readCounter(t, metrics.EvictionsTotal))
}
