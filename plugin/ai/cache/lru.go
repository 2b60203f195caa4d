package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache implements an LRU cache with TTL support.
type LRUCache struct {
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.Mutex

	cache map[string]*entry
	order *list.List // Doubly linked list for LRU ordering
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

// NewLRUCache creates a new LRU cache. A nil clock uses time.Now.
func NewLRUCache(capacity int, defaultTTL time.Duration, now func() time.Time) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	if now == nil {
		now = time.Now
	}

	return &LRUCache{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        now,
		cache:      make(map[string]*entry),
		order:      list.New(),
	}
}

// Get retrieves a value from the cache. The TTL is not extended.
func (c *LRUCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key)
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(e.element)
	return e.value, true
}

// Set stores a value in the cache and restarts its TTL.
func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.cache) >= c.capacity {
		c.evictOldest()
	}

	e := &entry{
		key:       key,
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	e.element = c.order.PushFront(e)
	c.cache[key] = e
}

// Update replaces the value of a live entry without touching its expiry.
func (c *LRUCache) Update(key string, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key)
	if !ok {
		return false
	}
	e.value = value
	c.order.MoveToFront(e.element)
	return true
}

// Delete removes key if present.
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[key]; ok {
		c.removeEntry(e)
	}
}

// Size returns the number of entries in the cache, expired ones included until cleanup.
func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// live returns the entry for key, dropping it if expired.
// Must be called with lock held.
func (c *LRUCache) live(key string) (*entry, bool) {
	e, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		c.removeEntry(e)
		return nil, false
	}
	return e, true
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *LRUCache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.removeEntry(oldest.Value.(*entry))
}

// removeEntry removes an entry from the cache.
// Must be called with lock held.
func (c *LRUCache) removeEntry(e *entry) {
	c.order.Remove(e.element)
	delete(c.cache, e.key)
}

// CleanupExpired removes all expired entries.
// Returns the number of entries removed.
func (c *LRUCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toDelete []*entry
	now := c.now()
	for _, e := range c.cache {
		if !now.Before(e.expiresAt) {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		c.removeEntry(e)
	}
	return len(toDelete)
}
