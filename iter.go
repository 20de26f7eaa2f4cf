package linkedmap

import (
	"github.com/pkg/errors"
)

// Iter walks a map from its first to its last entry without modifying it.
// An Iter is single-pass; call MapOf.Iter again to start over. The map
// must not be modified while an Iter is in use.
type Iter[K comparable, V any] struct {
	table *table[K, V]
	next  ref
}

// Iter returns an iterator positioned at the first entry.
func (m *MapOf[K, V]) Iter() *Iter[K, V] {
	if m.table == nil {
		return &Iter[K, V]{next: nilRef}
	}
	return &Iter[K, V]{table: m.table, next: m.table.head}
}

// Next returns the next entry, or ok == false once all entries have been
// returned.
func (it *Iter[K, V]) Next() (key K, value V, ok bool) {
	if it.next == nilRef {
		return key, value, false
	}
	n := it.table.nodes.at(it.next)
	it.next = n.next
	return n.key, n.value, true
}

// All returns an iterator over key-value pairs in order.
func (m *MapOf[K, V]) All() func(yield func(K, V) bool) {
	return func(yield func(K, V) bool) {
		it := m.Iter()
		for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
			if !yield(k, v) {
				return
			}
		}
	}
}

// Keys returns an iterator over keys in order.
func (m *MapOf[K, V]) Keys() func(yield func(K) bool) {
	return func(yield func(K) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}

// Values returns an iterator over values in order.
func (m *MapOf[K, V]) Values() func(yield func(V) bool) {
	return func(yield func(V) bool) {
		for _, v := range m.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// IntoIter takes the entries of a map and hands them out one by one,
// oldest first, releasing each entry as it is returned.
type IntoIter[K comparable, V any] struct {
	table *table[K, V]
	next  ref
}

// IntoIter moves every entry of m into the returned iterator. m is empty
// afterwards and can be reused.
func (m *MapOf[K, V]) IntoIter() *IntoIter[K, V] {
	t := m.table
	m.table = nil
	if t == nil {
		return &IntoIter[K, V]{next: nilRef}
	}
	return &IntoIter[K, V]{table: t, next: t.head}
}

// Next removes and returns the next entry, or reports ok == false when
// the iterator is exhausted.
//
// Next panics if the order links disagree with the number of entries
// left, since the remaining entries could not be reached reliably.
func (it *IntoIter[K, V]) Next() (key K, value V, ok bool) {
	if it.next == nilRef {
		return key, value, false
	}
	key, value, next := it.table.popFront(it.next)
	switch {
	case it.table.count == 0 && next != nilRef:
		panic(errors.Wrapf(errCorrupt, "last entry links forward to %d", next))
	case it.table.count != 0 && next == nilRef:
		panic(errors.Wrapf(errCorrupt, "order list ends with %d entries left", it.table.count))
	case next == nilRef:
		it.table = nil
	}
	it.next = next
	return key, value, true
}

// Len returns the number of entries not yet returned.
func (it *IntoIter[K, V]) Len() int {
	if it.table == nil {
		return 0
	}
	return it.table.len()
}

// All returns an iterator that drains the remaining entries.
func (it *IntoIter[K, V]) All() func(yield func(K, V) bool) {
	return func(yield func(K, V) bool) {
		for k, v, ok := it.Next(); ok; k, v, ok = it.Next() {
			if !yield(k, v) {
				return
			}
		}
	}
}
