// Package cache provides a bounded, expiring in-memory cache. Instances
// are created by the caller and passed explicitly to the components that
// use them.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults used when Options leave a field unset.
const (
	DefaultTTL      = time.Hour
	DefaultMaxItems = 10000
)

// Options bounds a cache by entry age and count.
type Options struct {
	TTL      time.Duration
	MaxItems int
}

// Stats reports cache activity.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// Cache maps string keys to values of type V. Entries expire after TTL
// and the least recently used entry is evicted beyond MaxItems. It is safe
// for concurrent use. A nil *Cache never stores anything.
type Cache[V any] struct {
	lru       *expirable.LRU[string, V]
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache.
func New[V any](opts Options) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	c := &Cache[V]{}
	c.lru = expirable.NewLRU[string, V](opts.MaxItems, func(string, V) {
		c.evictions.Add(1)
	}, opts.TTL)
	return c
}

// Get returns the cached value for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	if c == nil {
		var zero V
		return zero, false
	}
	v, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores v under key.
func (c *Cache[V]) Set(key string, v V) {
	if c == nil {
		return
	}
	c.lru.Add(key, v)
}

// GetOrCompute returns the cached value for key, computing and storing it
// on a miss. Concurrent misses may compute the same key more than once.
func (c *Cache[V]) GetOrCompute(key string, compute func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()
	c.Set(key, v)
	return v
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Stats returns a snapshot of the counters.
func (c *Cache[V]) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
	}
}
