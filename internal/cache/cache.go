// Package cache provides the process-local, time-boxed memoization used by the
// reference resolver. Entries expire lazily: an entry older than the TTL is
// dropped on the next access. There is no size bound and no background sweep.
package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is the lifetime of a resolved lookup.
const DefaultTTL = 5 * time.Minute

type entry struct {
	value     interface{}
	timestamp time.Time
}

// Cache is a TTL map safe for concurrent use. Concurrent misses on the same key
// each invoke their producer; results are not coalesced.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache. A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the live value for key. Expired entries are deleted.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(key)
}

// Has reports whether key holds a live value. A cached nil counts as present.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key, resetting its timestamp.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, timestamp: c.now()}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix and returns how many were removed.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) (interface{}, bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.timestamp) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// GetOrSet returns the cached value for key, or calls producer on a miss and
// stores its result, including a nil "not found" result. skipCache forces the
// producer to run and overwrite the entry. A producer error is returned and
// nothing is stored. The lock is not held while producer runs.
func GetOrSet[V any](c *Cache, key string, producer func() (V, error), skipCache bool) (V, error) {
	if !skipCache {
		if v, ok := c.Get(key); ok {
			if typed, ok := v.(V); ok {
				return typed, nil
			}
			if v == nil {
				var zero V
				return zero, nil
			}
		}
	}

	v, err := producer()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Key builds a single-entity key: {direction}:{documentType}:{id}.
func Key(direction, documentType, id string) string {
	return direction + ":" + documentType + ":" + id
}

// BulkKey builds a key for a "by ids" lookup. Ids are sorted so that the same
// set always maps to the same key.
func BulkKey(direction, documentType string, ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return Key(direction, documentType, "multiple:"+strings.Join(sorted, ","))
}
