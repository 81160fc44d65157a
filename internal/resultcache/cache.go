package resultcache

import (
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time // zero means never expires
}

// Cache is a process-wide TTL key-value store used to memoize embeddings and
// generated completions. Expiry is lazy on Get; SweepExpired exists for the
// periodic cleanup job. There is no eviction beyond expiry.
type Cache struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

func New() *Cache {
	return &Cache{
		items: make(map[string]entry),
		now:   time.Now,
	}
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(item) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry.
		if item, ok = c.items[key]; ok && c.expired(item) {
			delete(c.items, key)
			ok = false
		}
		c.mu.Unlock()
		if !ok {
			return nil, false
		}
	}
	return item.value, true
}

// Set stores value under key. A ttl <= 0 means the entry never expires.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	item := entry{value: value}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return false
	}
	delete(c.items, key)
	return true
}

func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
}

// SweepExpired removes every expired entry and returns how many were removed.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, item := range c.items {
		if c.expired(item) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently held, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache) expired(item entry) bool {
	return !item.expiresAt.IsZero() && c.now().After(item.expiresAt)
}
