// Package linkedmap provides MapOf, a hash map that remembers the order in
// which its keys were first inserted.
//
// Lookups, inserts, updates and removals run in expected constant time.
// Iteration visits entries from the oldest to the newest; Reverse flips
// that order in place. Re-inserting an existing key updates its value
// without moving it.
//
// MapOf is not safe for concurrent use.
package linkedmap

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// MapOf is an insertion-ordered hash map. The zero value is an empty map
// ready to use.
//
// An empty map holds no table at all; the table is created by the first
// Insert and dropped again when its last entry is removed.
type MapOf[K comparable, V any] struct {
	table    *table[K, V]
	keyHash  HashFunc[K] // nil for the built-in hasher
	sizeHint int
}

// NewMapOf creates a new MapOf instance. Direct initialization is also supported.
//
// Parameters:
//   - WithPresize option for initial capacity
//   - WithKeyHasher option for a custom key hash function
func NewMapOf[K comparable, V any](
	options ...func(*MapConfig),
) *MapOf[K, V] {
	var cfg MapConfig
	for _, opt := range options {
		opt(&cfg)
	}
	return &MapOf[K, V]{
		keyHash:  resolveHasher[K](&cfg),
		sizeHint: max(cfg.sizeHint, 0),
	}
}

// Insert stores value under key. If key was already present its value is
// replaced in place, keeping its position, and the previous value is
// returned with replaced set. Otherwise key becomes the newest entry.
func (m *MapOf[K, V]) Insert(key K, value V) (previous V, replaced bool) {
	if m.table == nil {
		m.table = newTable(key, value, m.keyHash, m.sizeHint)
		return previous, false
	}
	return m.table.insert(key, value)
}

// Remove deletes key and returns its value. Removing an absent key is a
// no-op reporting ok == false.
func (m *MapOf[K, V]) Remove(key K) (value V, ok bool) {
	if m.table == nil {
		return value, false
	}
	value, ok, err := m.table.remove(key)
	if errors.Is(err, errLastEntry) {
		m.table = nil
	}
	return value, ok
}

// Get returns the value stored under key.
func (m *MapOf[K, V]) Get(key K) (value V, ok bool) {
	if m.table == nil {
		return value, false
	}
	if n := m.table.lookup(key); n != nil {
		return n.value, true
	}
	return value, false
}

// GetMut returns a pointer to the value stored under key. The pointer
// stays valid until key is removed or the map is cleared or consumed by
// IntoIter.
func (m *MapOf[K, V]) GetMut(key K) (*V, bool) {
	if m.table == nil {
		return nil, false
	}
	if n := m.table.lookup(key); n != nil {
		return &n.value, true
	}
	return nil, false
}

// GetKeyValue returns the key as stored in the map along with its value.
func (m *MapOf[K, V]) GetKeyValue(key K) (storedKey K, value V, ok bool) {
	if m.table == nil {
		return storedKey, value, false
	}
	if n := m.table.lookup(key); n != nil {
		return n.key, n.value, true
	}
	return storedKey, value, false
}

// ContainsKey reports whether key is present.
func (m *MapOf[K, V]) ContainsKey(key K) bool {
	return m.table != nil && m.table.find(key) != nilRef
}

// Len returns the number of entries.
func (m *MapOf[K, V]) Len() int {
	if m.table == nil {
		return 0
	}
	return m.table.len()
}

// IsEmpty reports whether the map holds no entries.
func (m *MapOf[K, V]) IsEmpty() bool {
	return m.table == nil
}

// Front returns the entry iteration starts with.
func (m *MapOf[K, V]) Front() (key K, value V, ok bool) {
	if m.table == nil {
		return key, value, false
	}
	n := m.table.nodes.at(m.table.head)
	return n.key, n.value, true
}

// Back returns the entry iteration ends with, which is also where the
// next new key will be appended after.
func (m *MapOf[K, V]) Back() (key K, value V, ok bool) {
	if m.table == nil {
		return key, value, false
	}
	n := m.table.nodes.at(m.table.tail)
	return n.key, n.value, true
}

// Reverse inverts the iteration order in place: the newest entry becomes
// the first one visited. New keys are still appended at the end of the
// (reversed) order.
func (m *MapOf[K, V]) Reverse() {
	if m.table != nil {
		m.table.reverse()
	}
}

// Clear removes all entries.
func (m *MapOf[K, V]) Clear() {
	m.table = nil
}

// Clone returns a copy of the map with the same order and options.
// Values are copied as by assignment.
func (m *MapOf[K, V]) Clone() *MapOf[K, V] {
	c := *m
	if m.table != nil {
		c.table = m.table.clone()
	}
	return &c
}

// String returns the entries in iteration order, formatted the way fmt
// prints a built-in map.
func (m *MapOf[K, V]) String() string {
	var sb strings.Builder
	sb.WriteString("linkedmap.MapOf[")
	first := true
	for k, v := range m.All() {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&sb, "%v:%v", k, v)
	}
	sb.WriteByte(']')
	return sb.String()
}
