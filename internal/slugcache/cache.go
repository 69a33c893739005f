// Package slugcache stores resolved provider slugs keyed by origin and title.
//
// Entries are never evicted: a lookup returns whatever was last written and
// the caller decides whether it is still fresh. Memory grows with the number
// of distinct (origin, title) pairs seen by the process.
package slugcache

import (
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"
)

// Key identifies a cached slug
type Key struct {
	Origin string
	Title  string
}

// NewKey builds a key from an origin and an already normalized title.
// The title is lowercased so lookups are case-insensitive.
func NewKey(origin, title string) Key {
	return Key{Origin: strings.TrimRight(origin, "/"), Title: strings.ToLower(title)}
}

// Entry is a cached slug and the time it was written
type Entry struct {
	Value    string
	StoredAt time.Time
}

// Fresh reports whether the entry is younger than ttl at now
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) < ttl
}

// Cache is implemented by every slug cache backend.
// Set is best effort: a backend that cannot persist an entry drops it.
type Cache interface {
	Get(key Key) mo.Option[Entry]
	Set(key Key, value string, at time.Time)
}

// Memory is the in-process cache backend
type Memory struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewMemory creates an empty in-memory cache
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key]Entry)}
}

// Get returns the entry stored for key, fresh or not
func (m *Memory) Get(key Key) mo.Option[Entry] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return mo.None[Entry]()
	}
	return mo.Some(e)
}

// Set overwrites the entry for key
func (m *Memory) Set(key Key, value string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry{Value: value, StoredAt: at}
}

// Len returns the number of stored entries
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
