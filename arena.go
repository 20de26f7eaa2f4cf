package linkedmap

import (
	"math"
	"math/bits"
	"slices"
	"unsafe"

	"github.com/pkg/errors"
)

const (
	// chunkLines is the number of cache lines a node chunk aims to span.
	chunkLines = 64
	// minChunkLen and maxChunkLen bound the number of nodes in a chunk
	// regardless of the node size.
	minChunkLen = 8
	maxChunkLen = 1024
)

// arena owns the nodes of one table. Nodes live in fixed-size chunks that
// are never reallocated, so a pointer into a node stays valid for as long
// as the node is not released. Released slots are threaded through their
// next link and handed out again before the arena grows.
type arena[K comparable, V any] struct {
	chunks [][]node[K, V]
	shift  uint // log2 of the chunk length
	used   int  // slots handed out at least once
	free   ref
}

func newArena[K comparable, V any](sizeHint int) arena[K, V] {
	a := arena[K, V]{
		shift: chunkShift[K, V](),
		free:  nilRef,
	}
	for n := 0; n < sizeHint; n += 1 << a.shift {
		a.grow()
	}
	return a
}

// chunkShift sizes chunks to about chunkLines cache lines worth of nodes.
func chunkShift[K comparable, V any]() uint {
	size := unsafe.Sizeof(node[K, V]{})
	n := nextPowOf2(int(chunkLines * CacheLineSize / size))
	n = min(max(n, minChunkLen), maxChunkLen)
	return uint(bits.TrailingZeros(uint(n)))
}

func (a *arena[K, V]) grow() {
	a.chunks = append(a.chunks, make([]node[K, V], 1<<a.shift))
}

func (a *arena[K, V]) at(r ref) *node[K, V] {
	return &a.chunks[r>>a.shift][r&(1<<a.shift-1)]
}

// alloc returns the ref of an unused node. The node's fields are zero.
func (a *arena[K, V]) alloc() ref {
	if r := a.free; r != nilRef {
		a.free = a.at(r).next
		a.at(r).next = 0
		return r
	}
	if a.used == math.MaxInt32 {
		panic(errors.New("linkedmap: too many entries"))
	}
	if a.used == len(a.chunks)<<a.shift {
		a.grow()
	}
	r := ref(a.used)
	a.used++
	return r
}

// release zeroes the node so that its key and value can be collected,
// and puts the slot on the free list.
func (a *arena[K, V]) release(r ref) {
	*a.at(r) = node[K, V]{next: a.free}
	a.free = r
}

func (a *arena[K, V]) clone() arena[K, V] {
	c := *a
	c.chunks = make([][]node[K, V], len(a.chunks))
	for i, chunk := range a.chunks {
		c.chunks[i] = slices.Clone(chunk)
	}
	return c
}
