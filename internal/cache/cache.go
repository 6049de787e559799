// Package cache provides a keyed TTL cache with a memory tier and an
// optional disk tier. Instances are injected into callers; there is no
// ambient global cache.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// entry pairs a cached value with the time it was stored.
type entry struct {
	Timestamp int64  `json:"timestamp"` // unix seconds
	Value     string `json:"value"`
}

// Cache is a TTL cache. A zero directory disables the disk tier.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	memory map[string]entry
}

// New creates a cache writing disk entries under dir. dir may be empty
// for a memory-only cache. Disk failures are swallowed: the cache is an
// optimization, never a source of errors.
func New(dir string, ttl time.Duration) *Cache {
	if dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}
	return &Cache{
		dir:    dir,
		ttl:    ttl,
		now:    time.Now,
		memory: make(map[string]entry),
	}
}

// NewWithClock creates a cache with an injected clock for tests.
func NewWithClock(dir string, ttl time.Duration, now func() time.Time) *Cache {
	c := New(dir, ttl)
	c.now = now
	return c
}

// expired is a pure function of "now − timestamp vs TTL".
func (c *Cache) expired(e entry) bool {
	return c.now().Unix()-e.Timestamp > int64(c.ttl.Seconds())
}

// Get returns the cached value for key, or false when missing or expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	if e, ok := c.memory[key]; ok {
		if !c.expired(e) {
			c.mu.Unlock()
			return e.Value, true
		}
		delete(c.memory, key)
	}
	c.mu.Unlock()

	if c.dir == "" {
		return "", false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}
	if c.expired(e) {
		_ = os.Remove(c.path(key))
		return "", false
	}

	c.mu.Lock()
	c.memory[key] = e
	c.mu.Unlock()
	return e.Value, true
}

// Set stores a value under key in both tiers.
func (c *Cache) Set(key, value string) {
	e := entry{Timestamp: c.now().Unix(), Value: value}

	c.mu.Lock()
	c.memory[key] = e
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path(key), data, 0o644)
}

// Clear removes all entries from both tiers.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.memory = make(map[string]entry)
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return
	}
	for _, f := range files {
		_ = os.Remove(f)
	}
}

// CleanupExpired removes expired entries from the disk tier.
func (c *Cache) CleanupExpired() {
	if c.dir == "" {
		return
	}
	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			_ = os.Remove(f)
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil || c.expired(e) {
			_ = os.Remove(f)
		}
	}
}

// path hashes the key so arbitrary keys (URLs) map to valid file names.
func (c *Cache) path(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
