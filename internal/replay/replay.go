// Package replay implements the process-wide Shadowsocks IV replay
// cache: a set of recently observed IVs with a fixed TTL, guarded by a
// mutex because sessions run on their own goroutines.
package replay

import (
	"log/slog"
	"sync"
	"time"
)

// TTL is the fixed lifetime of an inserted IV.
const TTL = time.Hour

// Cache is a process-wide set of recently seen Shadowsocks IVs/salts.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*time.Timer
	now     func() time.Time
	log     *slog.Logger
}

// New builds an empty Cache.
func New(log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		entries: make(map[string]*time.Timer),
		now:     time.Now,
		log:     log.With("component", "replay_cache"),
	}
}

// IsDuplicated reports whether iv was already present, inserting it if
// not. An empty iv is never duplicated.
func (c *Cache) IsDuplicated(iv []byte) bool {
	if len(iv) == 0 {
		return false
	}
	key := string(iv)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.log.Warn("duplicated shadowsocks iv observed")
		return true
	}

	c.entries[key] = time.AfterFunc(TTL, func() {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	})
	return false
}

// Len reports the number of currently tracked IVs, for tests and metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close cancels all pending TTL timers, for clean process shutdown.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, t := range c.entries {
		t.Stop()
		delete(c.entries, k)
	}
}
