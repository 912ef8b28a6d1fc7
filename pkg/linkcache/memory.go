package linkcache

import (
	"sync"

	"github.com/tidwall/btree"
)

// MemoryCache is an ordered, thread-safe, in-memory Cache. It is also the
// index that FileCache serves reads from.
type MemoryCache struct {
	mu   sync.RWMutex
	data btree.Map[string, []string]
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Get returns a copy of the links stored for title.
func (m *MemoryCache) Get(title string) ([]string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	links, ok := m.data.Get(title)
	if !ok {
		return nil, false, nil
	}
	return clone(links), true, nil
}

// Put inserts links for title unless an entry already exists.
func (m *MemoryCache) Put(title string, links []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return clone(m.putLocked(title, links)), nil
}

func (m *MemoryCache) putLocked(title string, links []string) []string {
	if existing, ok := m.data.Get(title); ok {
		return existing
	}
	stored := clone(links)
	m.data.Set(title, stored)
	return stored
}

// merge inserts every absent entry of table and reports how many were added.
func (m *MemoryCache) merge(table map[string][]string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for title, links := range table {
		if _, ok := m.data.Get(title); !ok {
			m.data.Set(title, clone(links))
			added++
		}
	}
	return added
}

// Len returns the number of cached titles.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.Len()
}

// Range calls fn for every entry in title order until fn returns false.
func (m *MemoryCache) Range(fn func(title string, links []string) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.data.Scan(func(title string, links []string) bool {
		return fn(title, clone(links))
	})
}

// table returns a copy of every entry.
func (m *MemoryCache) table() map[string][]string {
	out := make(map[string][]string, m.Len())
	m.Range(func(title string, links []string) bool {
		out[title] = links
		return true
	})
	return out
}

// Close is a no-op.
func (m *MemoryCache) Close() error { return nil }
