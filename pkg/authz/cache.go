package authz

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is the default time-to-live for cached authorization results.
const DefaultCacheTTL = 10 * time.Second

// maxCacheEntries triggers a sweep of expired results when exceeded.
const maxCacheEntries = 4096

type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

// CachedAuthorizer wraps another Authorizer with a short-lived in-memory
// cache. Errors are never cached.
type CachedAuthorizer struct {
	inner   Authorizer
	ttl     time.Duration
	mu      sync.RWMutex
	cache   map[string]cacheEntry
	nowFunc func() time.Time
}

// NewCachedAuthorizer creates a CachedAuthorizer that wraps inner with the given TTL.
func NewCachedAuthorizer(inner Authorizer, ttl time.Duration) *CachedAuthorizer {
	return &CachedAuthorizer{
		inner:   inner,
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
		nowFunc: time.Now,
	}
}

// Authorize checks the cache first and delegates to the inner Authorizer on miss.
func (c *CachedAuthorizer) Authorize(ctx context.Context, req AuthzRequest) (bool, error) {
	key := cacheKey(req)
	now := c.nowFunc()

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expiresAt) {
		return entry.allowed, nil
	}

	allowed, err := c.inner.Authorize(ctx, req)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	if len(c.cache) >= maxCacheEntries {
		for k, e := range c.cache {
			if !now.Before(e.expiresAt) {
				delete(c.cache, k)
			}
		}
	}
	c.cache[key] = cacheEntry{allowed: allowed, expiresAt: now.Add(c.ttl)}
	c.mu.Unlock()

	return allowed, nil
}

// cacheKey builds a deterministic cache key. Group order does not matter.
func cacheKey(req AuthzRequest) string {
	groups := append([]string(nil), req.Groups...)
	slices.Sort(groups)
	return req.User + "\x00" + strings.Join(groups, ",") + "\x00" + req.Resource + "\x00" + req.Verb
}
