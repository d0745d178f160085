// Package cache stores fetched pages in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/fiscalia/internal/model"
)

// KeyPrefix versions every key so a format change can orphan old entries
const KeyPrefix = "fiscalia:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a URL. The scheme is dropped so the
// HTTPS page and its HTTP fallback share an entry.
func CacheKey(rawURL string) string {
	u := rawURL
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	hash := sha256.Sum256([]byte(strings.ToLower(u)))
	return KeyPrefix + hex.EncodeToString(hash[:])
}

// New builds the cache described by cfg. A disabled cache is a Nop.
// An empty directory resolves to <home>/.fiscalia/cache.
func New(cfg model.CacheConfig, home string) Cache {
	if !cfg.Enabled {
		return Nop{}
	}
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(home, ".fiscalia", "cache")
	}
	return NewLayeredCache(cfg.MemoryTTL, dir, cfg.DiskTTL)
}

// Nop never stores anything
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }

func (Nop) Set(string, []byte, time.Duration) error { return nil }

func (Nop) Delete(string) error { return nil }

func (Nop) Clear() error { return nil }
