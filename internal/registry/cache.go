package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/validation"
)

// Cache wraps a Lookup and keeps successful results for a fixed TTL.
// Failures, including ErrNotFound, are never cached.
type Cache struct {
	next Lookup
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	entity    model.LegalEntity
	expiresAt time.Time
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithCacheClock sets the clock used for expiry
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a caching decorator around next. A non-positive ttl uses DefaultCacheTTL.
func NewCache(next Lookup, ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Find returns a cached record or delegates to the wrapped lookup.
// Each call returns its own copy of the record.
func (c *Cache) Find(ctx context.Context, cnpj string) (*model.LegalEntity, error) {
	key := validation.OnlyDigits(cnpj)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if exists {
		if c.now().Before(entry.expiresAt) {
			e := entry.entity
			return &e, nil
		}
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}

	entity, err := c.next.Find(ctx, cnpj)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &cacheEntry{
		entity:    *entity,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()

	e := *entity
	return &e, nil
}

// Clear removes all cached entries
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Size returns the number of cached entries
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
