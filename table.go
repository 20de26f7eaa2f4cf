package linkedmap

import (
	"math/bits"
	"math/rand/v2"
	"slices"

	"github.com/pkg/errors"
)

var (
	// errLastEntry is returned by table.remove when the removed entry was
	// the only one. The table must then be discarded.
	errLastEntry = errors.New("linkedmap: last entry removed")
	// errCorrupt is the cause of every order or index violation found by
	// verify or hit while mutating.
	errCorrupt = errors.New("linkedmap: corrupt table")
)

// table is a linked hash table holding at least one entry.
// Entries are chained per bucket for lookup and linked from head to tail
// in insertion order.
type table[K comparable, V any] struct {
	nodes   arena[K, V]
	buckets []ref
	shift   uint
	count   int
	head    ref // oldest entry, start of iteration
	tail    ref // newest entry, append point
	keyHash HashFunc[K]
	seed    uintptr
}

// newTable creates a table holding the single entry key/value.
// A nil keyHash selects the built-in hasher.
func newTable[K comparable, V any](
	key K,
	value V,
	keyHash HashFunc[K],
	sizeHint int,
) *table[K, V] {
	if keyHash == nil {
		keyHash = defaultHasher[K]()
	}
	t := &table[K, V]{
		nodes:   newArena[K, V](sizeHint),
		keyHash: keyHash,
		seed:    uintptr(rand.Uint64()),
	}
	t.resetBuckets(calcTableLen(sizeHint))
	r := t.add(key, value, t.hash(key))
	t.head = r
	t.tail = r
	return t
}

func (t *table[K, V]) len() int {
	return t.count
}

func (t *table[K, V]) hash(key K) uintptr {
	return t.keyHash(key, t.seed)
}

// findSlot returns the bucket slot or chain link holding the ref of key,
// or nil if key is absent.
func (t *table[K, V]) findSlot(key K, hash uintptr) *ref {
	slot := &t.buckets[h1(hash, t.shift)]
	for r := *slot; r != nilRef; r = *slot {
		n := t.nodes.at(r)
		if n.hash == hash && n.key == key {
			return slot
		}
		slot = &n.chain
	}
	return nil
}

func (t *table[K, V]) find(key K) ref {
	if slot := t.findSlot(key, t.hash(key)); slot != nil {
		return *slot
	}
	return nilRef
}

func (t *table[K, V]) lookup(key K) *node[K, V] {
	if r := t.find(key); r != nilRef {
		return t.nodes.at(r)
	}
	return nil
}

// add allocates an unlinked node and indexes it.
func (t *table[K, V]) add(key K, value V, hash uintptr) ref {
	r := t.nodes.alloc()
	b := &t.buckets[h1(hash, t.shift)]
	*t.nodes.at(r) = node[K, V]{
		key:   key,
		value: value,
		prev:  nilRef,
		next:  nilRef,
		chain: *b,
		hash:  hash,
	}
	*b = r
	t.count++
	return r
}

// insert stores value under key. An existing key keeps its position and
// its previous value is returned; a new key is appended after the tail.
func (t *table[K, V]) insert(key K, value V) (previous V, replaced bool) {
	hash := t.hash(key)
	if slot := t.findSlot(key, hash); slot != nil {
		n := t.nodes.at(*slot)
		previous, n.value = n.value, value
		return previous, true
	}

	r := t.add(key, value, hash)
	t.nodes.at(r).prev = t.tail
	t.nodes.at(t.tail).next = r
	t.tail = r

	if float64(t.count) > float64(len(t.buckets))*mapLoadFactor {
		t.resize(len(t.buckets) << 1)
	}
	return previous, false
}

// remove deletes key and relinks its neighbours. It returns errLastEntry
// together with the value when key was the only entry.
func (t *table[K, V]) remove(key K) (value V, ok bool, err error) {
	slot := t.findSlot(key, t.hash(key))
	if slot == nil {
		return value, false, nil
	}
	r := *slot
	n := t.nodes.at(r)
	*slot = n.chain
	value, prev, next := n.value, n.prev, n.next
	t.nodes.release(r)
	t.count--

	switch {
	case prev == nilRef && next == nilRef:
		if t.count != 0 {
			t.corrupt("node %d is unlinked but %d entries remain", r, t.count)
		}
		return value, true, errLastEntry
	case prev == nilRef:
		if r != t.head {
			t.corrupt("node %d has no predecessor but head is %d", r, t.head)
		}
		t.nodes.at(next).prev = nilRef
		t.head = next
	case next == nilRef:
		if r != t.tail {
			t.corrupt("node %d has no successor but tail is %d", r, t.tail)
		}
		t.nodes.at(prev).next = nilRef
		t.tail = prev
	default:
		t.nodes.at(prev).next = next
		t.nodes.at(next).prev = prev
	}
	return value, true, nil
}

// popFront removes the head node r without hashing its key and returns
// its contents together with its next link, captured before release.
func (t *table[K, V]) popFront(r ref) (key K, value V, next ref) {
	if r != t.head {
		t.corrupt("pop of node %d, head is %d", r, t.head)
	}
	n := t.nodes.at(r)
	slot := &t.buckets[h1(n.hash, t.shift)]
	for *slot != r {
		if *slot == nilRef {
			t.corrupt("node %d is missing from its bucket", r)
		}
		slot = &t.nodes.at(*slot).chain
	}
	*slot = n.chain
	key, value, next = n.key, n.value, n.next
	t.nodes.release(r)
	t.count--

	if next != nilRef {
		t.nodes.at(next).prev = nilRef
		t.head = next
	}
	return key, value, next
}

// reverse flips the iteration order: every node swaps its links and the
// head and tail anchors trade places.
func (t *table[K, V]) reverse() {
	for r := t.head; r != nilRef; {
		n := t.nodes.at(r)
		n.prev, n.next = n.next, n.prev
		r = n.prev
	}
	t.head, t.tail = t.tail, t.head
}

// resize rebuilds the bucket index with tableLen buckets using the cached
// hashes. Chains are rebuilt in order, so no key is hashed again.
func (t *table[K, V]) resize(tableLen int) {
	t.resetBuckets(tableLen)
	for r := t.tail; r != nilRef; {
		n := t.nodes.at(r)
		b := &t.buckets[h1(n.hash, t.shift)]
		n.chain = *b
		*b = r
		r = n.prev
	}
}

func (t *table[K, V]) resetBuckets(tableLen int) {
	t.buckets = make([]ref, tableLen)
	for i := range t.buckets {
		t.buckets[i] = nilRef
	}
	t.shift = uint(bits.UintSize - bits.TrailingZeros(uint(tableLen)))
}

func (t *table[K, V]) clone() *table[K, V] {
	c := *t
	c.nodes = t.nodes.clone()
	c.buckets = slices.Clone(t.buckets)
	return &c
}

func (t *table[K, V]) corrupt(format string, args ...any) {
	panic(errors.Wrapf(errCorrupt, format, args...))
}

// verify walks the order list and the bucket index and reports the first
// inconsistency between them.
func (t *table[K, V]) verify() error {
	if t.count <= 0 {
		return errors.Wrapf(errCorrupt, "table holds %d entries", t.count)
	}
	if p := t.nodes.at(t.head).prev; p != nilRef {
		return errors.Wrapf(errCorrupt, "head %d links back to %d", t.head, p)
	}
	if n := t.nodes.at(t.tail).next; n != nilRef {
		return errors.Wrapf(errCorrupt, "tail %d links forward to %d", t.tail, n)
	}

	seen, prev := 0, nilRef
	for r := t.head; r != nilRef; r = t.nodes.at(r).next {
		n := t.nodes.at(r)
		if n.prev != prev {
			return errors.Wrapf(errCorrupt, "node %d links back to %d, want %d", r, n.prev, prev)
		}
		if h := t.hash(n.key); h != n.hash {
			return errors.Wrapf(errCorrupt, "node %d caches hash %#x, key hashes to %#x", r, n.hash, h)
		}
		if f := t.find(n.key); f != r {
			return errors.Wrapf(errCorrupt, "key of node %d resolves to node %d", r, f)
		}
		if seen++; seen > t.count {
			return errors.Wrapf(errCorrupt, "order list is longer than %d entries", t.count)
		}
		prev = r
	}
	if prev != t.tail {
		return errors.Wrapf(errCorrupt, "order list ends at %d, tail is %d", prev, t.tail)
	}
	if seen != t.count {
		return errors.Wrapf(errCorrupt, "order list has %d entries, count is %d", seen, t.count)
	}

	chained := 0
	for _, b := range t.buckets {
		for r := b; r != nilRef; r = t.nodes.at(r).chain {
			if chained++; chained > t.count {
				return errors.Wrapf(errCorrupt, "bucket chains hold more than %d entries", t.count)
			}
		}
	}
	if chained != t.count {
		return errors.Wrapf(errCorrupt, "bucket chains hold %d entries, count is %d", chained, t.count)
	}
	return nil
}
