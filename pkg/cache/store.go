// Package cache provides an in-memory, content-addressed store for derived
// artifacts with ETag, Last-Modified and TTL metadata.
//
// Keys are expected to carry the checksum of the content they were derived
// from ("<checksum>/<artifact>"), so an entry is never updated in place: a
// change of input produces a new key, and InvalidatePrefix drops every
// artifact derived from an old checksum at once.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Entry is an immutable cached artifact.
type Entry struct {
	Key          string
	Value        []byte
	ETag         string
	LastModified time.Time
	ExpiresAt    time.Time

	insertedAt time.Time
}

// Store is a thread-safe cache with TTL and max-size eviction. When the
// store is full the oldest entry by insertion time is evicted. Expired
// entries are lazily evicted on Get.
type Store struct {
	mu      sync.RWMutex
	items   map[string]*Entry
	maxSize int
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewStore creates a Store with the given maximum size and default TTL.
// maxSize must be >= 1; ttl must be > 0.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		items:   make(map[string]*Entry, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Get returns the entry for key. Missing and expired keys are a miss.
func (c *Store) Get(key string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return Entry{}, false
	}

	if c.nowFunc().After(e.ExpiresAt) {
		c.mu.Lock()
		// Only drop the entry we saw; a concurrent Set may have replaced it.
		if cur, ok := c.items[key]; ok && cur == e {
			delete(c.items, key)
			cacheEvictions.WithLabelValues("expired").Inc()
		}
		c.mu.Unlock()
		cacheLookups.WithLabelValues("miss").Inc()
		return Entry{}, false
	}

	cacheLookups.WithLabelValues("hit").Inc()
	return *e, true
}

// Set stores value under key, replacing any previous entry wholesale.
// A ttl <= 0 selects the store default.
func (c *Store) Set(key string, value []byte, etag string, lastModified time.Time, ttl time.Duration) Entry {
	if ttl <= 0 {
		ttl = c.ttl
	}
	now := c.nowFunc()
	e := &Entry{
		Key:          key,
		Value:        value,
		ETag:         etag,
		LastModified: lastModified,
		ExpiresAt:    now.Add(ttl),
		insertedAt:   now,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok && len(c.items) >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = e
	cacheEntries.Set(float64(len(c.items)))
	return *e
}

// Invalidate removes a specific key.
func (c *Store) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; ok {
		delete(c.items, key)
		cacheEvictions.WithLabelValues("invalidated").Inc()
	}
	cacheEntries.Set(float64(len(c.items)))
}

// InvalidatePrefix removes every key starting with prefix and returns the
// number of entries removed.
func (c *Store) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	cacheEvictions.WithLabelValues("invalidated").Add(float64(n))
	cacheEntries.Set(float64(len(c.items)))
	return n
}

// InvalidateAll removes all entries.
func (c *Store) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*Entry, c.maxSize)
	cacheEntries.Set(0)
}

// Size returns the number of entries currently held, including expired ones
// that have not been lazily removed yet.
func (c *Store) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns the keys currently held.
func (c *Store) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

// evictOldest removes the entry with the oldest insertedAt timestamp.
// Must be called with c.mu held.
func (c *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for k, e := range c.items {
		if first || e.insertedAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.insertedAt
			first = false
		}
	}

	if !first {
		delete(c.items, oldestKey)
		cacheEvictions.WithLabelValues("capacity").Inc()
	}
}
