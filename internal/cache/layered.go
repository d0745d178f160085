package cache

import (
	"errors"
	"sync/atomic"
	"time"
)

// Stats counts page lookups by the layer that answered them
type Stats struct {
	MemoryHits int64
	DiskHits   int64
	Misses     int64
}

// Lookups returns the number of Get calls counted in s
func (s Stats) Lookups() int64 {
	return s.MemoryHits + s.DiskHits + s.Misses
}

// Reporter is implemented by caches that count their lookups
type Reporter interface {
	Stats() Stats
}

// LayeredCache keeps pages read during this run in memory in front of the
// persistent disk cache. Disk hits are promoted to memory.
type LayeredCache struct {
	memory Cache
	disk   Cache

	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
}

// NewLayeredCache creates a memory layer with memoryTTL over a disk layer in
// diskDir with diskTTL
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if page, ok := c.memory.Get(key); ok {
		c.memoryHits.Add(1)
		return page, true
	}

	page, ok := c.disk.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.diskHits.Add(1)
	_ = c.memory.Set(key, page, 0)
	return page, true
}

// Set writes page to both layers. The memory layer keeps its own TTL; ttl
// applies to the disk entry.
func (c *LayeredCache) Set(key string, page []byte, ttl time.Duration) error {
	_ = c.memory.Set(key, page, 0)
	return c.disk.Set(key, page, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

// Clear empties both layers and resets the counters
func (c *LayeredCache) Clear() error {
	c.memoryHits.Store(0)
	c.diskHits.Store(0)
	c.misses.Store(0)
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}

// Stats reports lookups since construction or the last Clear
func (c *LayeredCache) Stats() Stats {
	return Stats{
		MemoryHits: c.memoryHits.Load(),
		DiskHits:   c.diskHits.Load(),
		Misses:     c.misses.Load(),
	}
}
