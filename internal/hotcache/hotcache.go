// Package hotcache implements the in-process hot tier: an LRU-ordered
// cache whose only built-in size limit is a very large entry count
// (unboundedCapacity). Capacity is in practice governed externally by
// internal/memmonitor, which evicts the least-recently-used entries under
// host memory pressure.
package hotcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// unboundedCapacity is large enough that golang-lru/v2's internal size
// check never trips in practice; real eviction is driven by memmonitor
// calling RemoveOldest under memory pressure, not by this limit.
const unboundedCapacity = 1 << 24

// Entry is a cached response body plus its headers and insertion time.
type Entry struct {
	Body      []byte
	Headers   []Header
	InsertedAt time.Time
}

// Header mirrors storage.Header so that hotcache does not import storage;
// engine converts between the two at the boundary.
type Header struct {
	Name  string
	Value string
}

// Cache is the thread-safe hot tier.
type Cache struct {
	mu  sync.RWMutex
	lru *lru.Cache[string, Entry]
}

// New builds an empty hot cache.
func New() *Cache {
	c, err := lru.New[string, Entry](unboundedCapacity)
	if err != nil {
		panic("hotcache: failed to construct LRU: " + err.Error())
	}
	return &Cache{lru: c}
}

// Get returns the cached entry for key, if present, marking it
// most-recently-used.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Put inserts or overwrites the entry for key.
func (c *Cache) Put(key string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, e)
}

// Len returns the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// EvictOldest removes the least-recently-used entry, reporting whether one
// was evicted. Called by memmonitor under memory pressure.
func (c *Cache) EvictOldest() (key string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, _, ok = c.lru.RemoveOldest()
	return key, ok
}

// Clear empties the cache, returning the number of entries removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.lru.Len()
	c.lru.Purge()
	return n
}

// Snapshot returns a shallow copy of every key currently cached, used by
// the admin status endpoint. It does not affect LRU order.
func (c *Cache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, c.lru.Len())
	for _, k := range c.lru.Keys() {
		if v, ok := c.lru.Peek(k); ok {
			out[k] = v
		}
	}
	return out
}
