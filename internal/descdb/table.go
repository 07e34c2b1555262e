package descdb

import (
	"maps"
	"slices"
	"sync"
)

// Table is a keyed lookup table that is only ever replaced as a whole.
// Readers see either the previous or the new contents, never a mix.
type Table[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	loaded  bool
}

// Replace swaps in entries. The table keeps the map; callers must not
// modify it afterwards.
func (t *Table[K, V]) Replace(entries map[K]V) {
	if entries == nil {
		entries = map[K]V{}
	}
	t.mu.Lock()
	t.entries = entries
	t.loaded = true
	t.mu.Unlock()
}

// Clear empties the table and marks it unloaded.
func (t *Table[K, V]) Clear() {
	t.mu.Lock()
	t.entries = nil
	t.loaded = false
	t.mu.Unlock()
}

// Lookup returns the entry for key. A miss is not an error.
func (t *Table[K, V]) Lookup(key K) (V, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[key]
	return v, ok
}

// Len returns the number of entries.
func (t *Table[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Loaded reports whether Replace has been called since the last Clear.
func (t *Table[K, V]) Loaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

// Keys returns the keys in unspecified order.
func (t *Table[K, V]) Keys() []K {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Collect(maps.Keys(t.entries))
}
