package users

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/myphotos/backend/internal/models"
)

// ErrLookupUnavailable indicates the cache has no backing lookup configured.
var ErrLookupUnavailable = errors.New("user lookup unavailable")

// Lookup resolves a user by id.
type Lookup interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

type cacheEntry struct {
	user    models.User
	expires time.Time
}

// CachingLookup wraps another Lookup with a TTL-based in-memory cache. Only
// successful lookups are cached so a user created after a miss is seen at once.
type CachingLookup struct {
	base Lookup
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	items     map[string]cacheEntry
	lastSweep time.Time
}

// NewCachingLookup returns a Lookup that caches users for the provided TTL.
func NewCachingLookup(base Lookup, ttl time.Duration) *CachingLookup {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingLookup{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

// FindByID returns the cached user when available, otherwise it delegates to
// the underlying lookup and stores the result.
func (c *CachingLookup) FindByID(ctx context.Context, id string) (models.User, error) {
	if c == nil || c.base == nil {
		return models.User{}, ErrLookupUnavailable
	}

	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[id]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.user, nil
	}
	if ok {
		c.mu.Lock()
		if current, still := c.items[id]; still && !now.Before(current.expires) {
			delete(c.items, id)
		}
		c.mu.Unlock()
	}

	user, err := c.base.FindByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	c.mu.Lock()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.sweepLocked(now)
	}
	c.items[id] = cacheEntry{user: user, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return user, nil
}

// sweepLocked drops every expired entry. Callers hold c.mu.
func (c *CachingLookup) sweepLocked(now time.Time) {
	for id, entry := range c.items {
		if !now.Before(entry.expires) {
			delete(c.items, id)
		}
	}
	c.lastSweep = now
}

// Len reports how many entries are held, expired or not.
func (c *CachingLookup) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Forget drops any cached entry for id.
func (c *CachingLookup) Forget(id string) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}
