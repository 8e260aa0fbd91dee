// Package cache holds the process-local read cache and the durable sync
// journal.
//
// The read cache is a flat TTL map of opaque keys. Any write through sheetdb
// clears all of it; there is no per-key invalidation. The sync journal
// records, per store, that a full resync happened since the last
// invalidation, and survives restarts.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ajitpratap0/sheetdb/pkg/metrics"
)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now Clock) Option {
	return func(c *Cache) {
		c.now = now
	}
}

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is a TTL map safe for concurrent use. Expired entries are removed
// lazily on lookup.
type Cache struct {
	ttl     time.Duration
	now     Clock
	mu      sync.Mutex
	entries map[string]entry
}

// New creates a cache whose entries live for ttl after being stored.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues(metrics.ResultMiss).Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues(metrics.ResultHit).Inc()
	return e.value, true
}

// Put stores value under key, replacing any previous value.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, storedAt: c.now()}
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	metrics.CacheClears.Inc()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ValuesKey is the key of a single-range read.
func ValuesKey(storeID, a1 string) string {
	return "values|" + storeID + "|" + a1
}

// HeadersKey is the key of a sheet's resolved header row.
func HeadersKey(storeID, sheet string) string {
	return "headers|" + storeID + "|" + sheet
}

// BatchKey is the key of a multi-range read. Range order does not matter.
func BatchKey(storeID string, ranges []string) string {
	sorted := make([]string, len(ranges))
	copy(sorted, ranges)
	sort.Strings(sorted)
	return "batch|" + storeID + "|" + strings.Join(sorted, ",")
}
