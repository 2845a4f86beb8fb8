/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"github.com/cespare/xxhash/v2"

	"github.com/acronis/go-accelkit/lrucache"
)

const keyedStoreShardsCount = 16 // power of two, see shardIndex

// keyedStore keeps per-key limiter state sharded by key hash so that checks
// on distinct keys touch different locks. Idle entries expire after the
// configured TTL (refreshed on every access) and are removed either lazily
// or by RemoveExpired sweeps.
type keyedStore[V any] struct {
	shards [keyedStoreShardsCount]*lrucache.LRUCache[string, V]
}

func newKeyedStore[V any](maxKeys int, opts lrucache.Options, mc lrucache.MetricsCollector) (*keyedStore[V], error) {
	maxKeysPerShard := maxKeys / keyedStoreShardsCount
	if maxKeysPerShard == 0 {
		maxKeysPerShard = 1
	}
	s := &keyedStore[V]{}
	for i := range s.shards {
		shard, err := lrucache.NewWithOpts[string, V](maxKeysPerShard, mc, opts)
		if err != nil {
			return nil, err
		}
		s.shards[i] = shard
	}
	return s, nil
}

func shardIndex(key string) uint64 {
	return xxhash.Sum64String(key) & (keyedStoreShardsCount - 1)
}

// GetOrAdd returns the state for the key, creating it lazily on first access.
func (s *keyedStore[V]) GetOrAdd(key string, valueProvider func() V) V {
	v, _ := s.shards[shardIndex(key)].GetOrAdd(key, valueProvider)
	return v
}

// RemoveExpired removes idle entries from all shards and returns the number of removed ones.
func (s *keyedStore[V]) RemoveExpired() int {
	removed := 0
	for _, shard := range s.shards {
		removed += shard.RemoveExpired()
	}
	return removed
}

// Len returns the total number of keys with retained state.
func (s *keyedStore[V]) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}
