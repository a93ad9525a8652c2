// Package cache provides a small in-memory TTL cache used to avoid
// regenerating expensive derived values (the market narrative) on
// every read.
package cache

import (
	"sync"
	"time"

	"github.com/ternarybob/meridian/internal/interfaces"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// TTL is a concurrency-safe string cache with per-entry expiry.
// Expired entries are overwritten on the next Set; there is no
// background sweeper because the key space is tiny.
type TTL struct {
	ttl   time.Duration
	clock interfaces.Clock

	mu      sync.RWMutex
	entries map[string]entry
}

func NewTTL(ttl time.Duration, clock interfaces.Clock) *TTL {
	if clock == nil {
		clock = interfaces.SystemClock()
	}
	return &TTL{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry),
	}
}

// Get returns the cached value and whether it is still fresh.
func (c *TTL) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.clock.Now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// Set stores a value with the cache's TTL.
func (c *TTL) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

// Invalidate drops one key.
func (c *TTL) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
