package cache

import (
	"bytes"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds pages for the lifetime of one process. Callers get
// copies, so a parsed page never aliases the cached bytes.
type MemoryCache struct {
	pages  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache expires entries after ttl and sweeps them every
// cleanupInterval
func NewMemoryCache(ttl time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		pages: gocache.New(ttl, cleanupInterval),
	}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if v, ok := c.pages.Get(key); ok {
		if page, ok := v.([]byte); ok {
			c.hits.Add(1)
			return bytes.Clone(page), true
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Set stores a copy of page. A zero ttl uses the cache default.
func (c *MemoryCache) Set(key string, page []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.pages.Set(key, bytes.Clone(page), ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.pages.Delete(key)
	return nil
}

// Clear drops every page and resets the counters
func (c *MemoryCache) Clear() error {
	c.pages.Flush()
	c.hits.Store(0)
	c.misses.Store(0)
	return nil
}

// Len returns the number of stored pages, including expired ones not yet
// swept
func (c *MemoryCache) Len() int {
	return c.pages.ItemCount()
}

// Stats reports lookups; every hit is a memory hit
func (c *MemoryCache) Stats() Stats {
	return Stats{MemoryHits: c.hits.Load(), Misses: c.misses.Load()}
}
