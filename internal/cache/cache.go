// Package cache provides the response cache used in front of the social API.
//
// Entries are raw JSON payloads keyed by the full request URL. A payload is
// returned only while now - storedAt < ttl; stale entries are dropped lazily
// on read. The table is size-capped with least-recently-used eviction so a
// long-lived process does not grow without bound.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTTL matches the upstream proxy's five minute window.
const DefaultTTL = 5 * time.Minute

// Entry is a cached payload with the time it was stored.
type Entry struct {
	Key      string
	Payload  []byte
	StoredAt time.Time
}

// TTLCache maps request keys to payloads with time-based expiry.
// Safe for concurrent use.
type TTLCache struct {
	ttl   time.Duration
	now   func() time.Time
	table *lru.Cache[string, Entry]

	// mu makes the stale check and its eviction atomic with respect to Put.
	mu sync.Mutex
}

// Option customizes a TTLCache.
type Option func(*TTLCache)

// WithClock replaces time.Now, letting tests control expiry.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		c.now = now
	}
}

// New creates a cache holding at most maxEntries payloads for ttl each.
func New(ttl time.Duration, maxEntries int, opts ...Option) (*TTLCache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}
	table, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create cache table: %w", err)
	}

	c := &TTLCache{
		ttl:   ttl,
		now:   time.Now,
		table: table,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the payload for key if present and not expired.
func (c *TTLCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.table.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.StoredAt) >= c.ttl {
		c.table.Remove(key)
		return nil, false
	}
	return entry.Payload, true
}

// Put stores payload under key, replacing any existing entry.
func (c *TTLCache) Put(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.table.Add(key, Entry{
		Key:      key,
		Payload:  payload,
		StoredAt: c.now(),
	})
}

// Len reports the number of entries held, including ones not yet found stale.
func (c *TTLCache) Len() int {
	return c.table.Len()
}

// TTL returns the configured time-to-live.
func (c *TTLCache) TTL() time.Duration {
	return c.ttl
}
