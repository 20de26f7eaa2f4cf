package linkedmap

// ref is the position of a node inside the arena of its table. A ref stays
// valid until the node it designates is released.
type ref int32

// nilRef marks the absence of a node: the prev link of the head, the next
// link of the tail and the end of a bucket chain.
const nilRef ref = -1

// node is a single map entry. prev and next give the iteration order and
// are independent of where the entry sits in the hash index.
type node[K comparable, V any] struct {
	key   K
	value V
	prev  ref
	next  ref
	chain ref // next node in the same bucket
	hash  uintptr
}
