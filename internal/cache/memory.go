package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultMemoryCap bounds the in-process cache when Redis is unreachable.
const DefaultMemoryCap = 1000

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	cap     int
}

var _ Cache = (*memoryCache)(nil)

// NewMemory returns an in-process cache holding at most cap entries.
// Past the cap, the entry expiring soonest is evicted.
func NewMemory(capacity int) Cache {
	if capacity <= 0 {
		capacity = DefaultMemoryCap
	}
	return &memoryCache{
		entries: make(map[string]memoryEntry),
		cap:     capacity,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return "", false
	}
	return entry.value, true
}

func (c *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	if len(c.entries) > c.cap {
		c.evictSoonest()
	}
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	deleted := 0
	for key := range c.entries {
		if matchPattern(key, pattern) {
			delete(c.entries, key)
			deleted++
		}
	}
	return deleted
}

// evictSoonest drops the entry with the nearest expiry. Caller holds the lock.
func (c *memoryCache) evictSoonest() {
	var oldest string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldest == "" || entry.expiresAt.Before(oldestAt) {
			oldest = key
			oldestAt = entry.expiresAt
		}
	}
	if oldest != "" {
		delete(c.entries, oldest)
	}
}

// matchPattern supports exact keys and a single trailing “*” glob, which is
// all the engine's invalidation patterns use.
func matchPattern(key, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return key == pattern
	}
	prefix := strings.TrimSuffix(pattern, "*")
	return strings.HasPrefix(key, prefix)
}
