// Package cache is a small in-memory key-value store whose entries expire.
//
// Exporters use it to remember lookups, such as a spreadsheet's ID by name,
// across repeated analysis runs in the same process.
package cache

import (
	"sync"
	"time"
)

type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	now     func() time.Time
}

type entry[V any] struct {
	value V
	exp   time.Time
}

func New[V any]() *Cache[V] {
	return NewWithClock[V](time.Now)
}

// NewWithClock returns a Cache that reads the current time from now.
func NewWithClock[V any](now func() time.Time) *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]entry[V]),
		now:     now,
	}
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value: value,
		exp:   c.now().Add(ttl),
	}
}

// Lookup returns the value for key and whether it was present and unexpired.
func (c *Cache[V]) Lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	if c.now().Before(e.exp) {
		return e.value, true
	}

	delete(c.entries, key)
	return zero, false
}

// Delete removes key. It is a no-op if key is absent.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}
