package testutil

import (
	"maps"
	"sync"

	"folio/internal/cms"
)

// MapCache is an in-memory cms.Cache that records how it was used.
// Safe for concurrent use.
type MapCache struct {
	mu      sync.Mutex
	entries map[string]string
	flushes int
}

func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string]string)}
}

func (c *MapCache) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *MapCache) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *MapCache) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *MapCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	c.flushes++
	return nil
}

// Entries returns a copy of every entry.
func (c *MapCache) Entries() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.entries)
}

// Flushes returns how many times Flush was called.
func (c *MapCache) Flushes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushes
}

var _ cms.Cache = (*MapCache)(nil)
