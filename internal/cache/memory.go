package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"folio/internal/cms"
)

// DefaultMemorySize is the entry limit of a memory cache created with size 0.
const DefaultMemorySize = 10000

// Memory is an in-process LRU cache. Entries never expire but the least
// recently used ones are evicted once the size limit is reached.
// Safe for concurrent use.
type Memory struct {
	lru *lru.Cache[string, string]
}

// NewMemory creates a memory cache holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultMemorySize
	}
	c, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &Memory{lru: c}, nil
}

func (m *Memory) Get(key string) (string, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Remove(key string) error {
	m.lru.Remove(key)
	return nil
}

func (m *Memory) Flush() error {
	m.lru.Purge()
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len() int { return m.lru.Len() }

// Compile-time check that Memory implements cms.Cache.
var _ cms.Cache = (*Memory)(nil)
