package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const (
	// shardCount is the number of shards. Power of 2 for fast modulo
	// via bitwise AND.
	shardCount = 16

	// defaultShardCapacity is the default maximum entries per shard.
	defaultShardCapacity = 256

	shardMask = shardCount - 1
)

// Hasher computes the shard-selection hash for a key.
type Hasher[K any] func(K) uint64

// StringHasher computes FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Uint64Hasher returns the key itself as the hash.
func Uint64Hasher(u uint64) uint64 { return u }

// Sharded is a thread-safe LRU cache split across 16 shards. Unlike
// Manager, which belongs to the single-threaded engine loop, Sharded
// serves callers that run concurrently, such as text shaping memoization
// where shapers from a pool hit the cache in parallel.
type Sharded[K comparable, V any] struct {
	shards   [shardCount]*shardedShard[K, V]
	hasher   Hasher[K]
	capacity int // per shard

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type shardedShard[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*shardedEntry[K, V]
	order   *lruList[K]
}

type shardedEntry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// ShardedStats holds sharded cache counters.
type ShardedStats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	HitRate   float64
	Evictions uint64
}

// NewSharded creates a sharded cache holding up to capacity entries per
// shard. capacity <= 0 selects the default of 256.
func NewSharded[K comparable, V any](capacity int, hasher Hasher[K]) *Sharded[K, V] {
	if capacity <= 0 {
		capacity = defaultShardCapacity
	}
	c := &Sharded[K, V]{hasher: hasher, capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &shardedShard[K, V]{
			entries: make(map[K]*shardedEntry[K, V]),
			order:   newLRUList[K](),
		}
	}
	return c
}

func (c *Sharded[K, V]) shard(key K) *shardedShard[K, V] {
	return c.shards[c.hasher(key)&shardMask]
}

// Get retrieves a cached value, refreshing its recency on a hit.
func (c *Sharded[K, V]) Get(key K) (V, bool) {
	sh := c.shard(key)

	sh.mu.Lock()
	e, ok := sh.entries[key]
	if !ok {
		sh.mu.Unlock()
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	sh.order.MoveToFront(e.node)
	value := e.value
	sh.mu.Unlock()

	c.hits.Add(1)
	return value, true
}

// Set stores a value, evicting the shard's oldest entries past
// capacity. The value is stored as-is, not copied.
func (c *Sharded[K, V]) Set(key K, value V) {
	sh := c.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[key]; ok {
		e.value = value
		sh.order.MoveToFront(e.node)
		return
	}
	for sh.order.Len() >= c.capacity {
		oldest, ok := sh.order.RemoveOldest()
		if !ok {
			break
		}
		delete(sh.entries, oldest)
		c.evictions.Add(1)
	}
	sh.entries[key] = &shardedEntry[K, V]{value: value, node: sh.order.PushFront(key)}
}

// GetOrCreate returns the cached value or creates and caches it. The
// create function runs with the shard lock held, so concurrent callers
// of the same key compute it once; keep it fast.
func (c *Sharded[K, V]) GetOrCreate(key K, create func() V) V {
	sh := c.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.entries[key]; ok {
		sh.order.MoveToFront(e.node)
		c.hits.Add(1)
		return e.value
	}

	c.misses.Add(1)
	value := create()

	for sh.order.Len() >= c.capacity {
		oldest, ok := sh.order.RemoveOldest()
		if !ok {
			break
		}
		delete(sh.entries, oldest)
		c.evictions.Add(1)
	}
	sh.entries[key] = &shardedEntry[K, V]{value: value, node: sh.order.PushFront(key)}
	return value
}

// Delete removes an entry, reporting whether it existed.
func (c *Sharded[K, V]) Delete(key K) bool {
	sh := c.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[key]
	if !ok {
		return false
	}
	sh.order.Remove(e.node)
	delete(sh.entries, key)
	return true
}

// Clear removes every entry from every shard.
func (c *Sharded[K, V]) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.entries = make(map[K]*shardedEntry[K, V])
		sh.order.Clear()
		sh.mu.Unlock()
	}
}

// Len returns the total entry count across shards.
func (c *Sharded[K, V]) Len() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

// Stats returns a snapshot of the counters.
func (c *Sharded[K, V]) Stats() ShardedStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return ShardedStats{
		Len:       c.Len(),
		Capacity:  c.capacity * shardCount,
		Hits:      hits,
		Misses:    misses,
		HitRate:   hitRate,
		Evictions: c.evictions.Load(),
	}
}
