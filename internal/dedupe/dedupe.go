// Package dedupe suppresses reprocessing of redelivered webhook events.
// The cache is in-memory only: events seen before a restart may be processed
// again, and the cache is not shared across processes. Callers that need a
// hard once-only guarantee must layer a durable check on top.
package dedupe

import (
	"strings"
	"sync"
	"time"
)

// Cache is a time-windowed set of event identifiers.
type Cache struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		ttl:  ttl,
		seen: map[string]time.Time{},
	}
}

// SeenOrMark reports whether id was already recorded, marking it if not.
// An empty id is never considered seen.
func (c *Cache) SeenOrMark(id string) bool {
	return c.seenOrMarkAt(id, time.Now())
}

func (c *Cache) seenOrMarkAt(id string, now time.Time) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(now)
	if _, ok := c.seen[id]; ok {
		return true
	}
	c.seen[id] = now.Add(c.ttl)
	return false
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(time.Now())
	return len(c.seen)
}

func (c *Cache) pruneLocked(now time.Time) {
	for k, exp := range c.seen {
		if now.After(exp) {
			delete(c.seen, k)
		}
	}
}
