package linkedmap

import (
	"hash/maphash"
	"math/bits"
	"unsafe"

	"github.com/pkg/errors"
)

const (
	// mapLoadFactor is the average bucket chain length above which the
	// bucket index of a table doubles.
	mapLoadFactor = 0.75
	// defaultMinTableLen defines the minimum number of hash buckets.
	defaultMinTableLen = 8
)

// HashFunc hashes a key. seed is chosen randomly for every table and
// should be mixed into the result.
type HashFunc[K comparable] func(key K, seed uintptr) uintptr

// MapConfig defines configurable MapOf options.
type MapConfig struct {
	sizeHint int
	keyHash  any
}

// WithPresize configures new MapOf instance with capacity enough
// to hold sizeHint entries without growing its hash index or node
// arena. If sizeHint is zero or negative, the value is ignored.
func WithPresize(sizeHint int) func(*MapConfig) {
	return func(c *MapConfig) {
		c.sizeHint = sizeHint
	}
}

// WithKeyHasher replaces the built-in key hash function.
// K must be the key type of the map the option is passed to,
// otherwise NewMapOf panics.
//
// Usage:
//
//	m := NewMapOf[string, int](WithKeyHasher(func(key string, seed uintptr) uintptr {
//		return uintptr(crc32.ChecksumIEEE([]byte(key))) ^ seed
//	}))
func WithKeyHasher[K comparable](keyHash func(key K, seed uintptr) uintptr) func(*MapConfig) {
	return func(c *MapConfig) {
		if keyHash == nil {
			c.keyHash = nil
			return
		}
		c.keyHash = HashFunc[K](keyHash)
	}
}

// resolveHasher returns the hasher configured in cfg, or nil when the
// built-in one should be used.
func resolveHasher[K comparable](cfg *MapConfig) HashFunc[K] {
	if cfg.keyHash == nil {
		return nil
	}
	keyHash, ok := cfg.keyHash.(HashFunc[K])
	if !ok {
		panic(errors.Errorf("linkedmap: key hasher %T does not accept keys of type %T",
			cfg.keyHash, *new(K)))
	}
	return keyHash
}

// defaultHasher returns the built-in hash function for K. Integer keys
// hash to their own value; the bucket index multiplies it by hashPrime, so
// sequential keys still spread evenly. Every other type goes through
// maphash with a seed private to the returned function.
func defaultHasher[K comparable]() HashFunc[K] {
	switch any(*new(K)).(type) {
	case uint, int, uintptr:
		return func(key K, seed uintptr) uintptr {
			return *(*uintptr)(unsafe.Pointer(&key)) ^ seed
		}

	case uint64, int64:
		if bits.UintSize == 32 {
			return func(key K, seed uintptr) uintptr {
				v := *(*uint64)(unsafe.Pointer(&key))
				return (uintptr(v) ^ uintptr(v>>32)) ^ seed
			}
		}

		return func(key K, seed uintptr) uintptr {
			return uintptr(*(*uint64)(unsafe.Pointer(&key))) ^ seed
		}

	case uint32, int32:
		return func(key K, seed uintptr) uintptr {
			return uintptr(*(*uint32)(unsafe.Pointer(&key))) ^ seed
		}

	case uint16, int16:
		return func(key K, seed uintptr) uintptr {
			return uintptr(*(*uint16)(unsafe.Pointer(&key))) ^ seed
		}

	case uint8, int8:
		return func(key K, seed uintptr) uintptr {
			return uintptr(*(*uint8)(unsafe.Pointer(&key))) ^ seed
		}

	default:
		s := maphash.MakeSeed()
		return func(key K, seed uintptr) uintptr {
			return uintptr(maphash.Comparable(s, key)) ^ seed
		}
	}
}

// h1 maps a hash onto a bucket index. shift is bits.UintSize minus
// log2 of the bucket count; the multiplication moves entropy from the
// low bits, where integer keys keep it, into the high bits that survive
// the shift.
func h1(h uintptr, shift uint) uintptr {
	return (h * hashPrime) >> shift
}

// calcTableLen computes the bucket count for a table expected to hold
// sizeHint entries. The return value is a power of 2.
func calcTableLen(sizeHint int) int {
	tableLen := defaultMinTableLen
	if float64(sizeHint) > float64(tableLen)*mapLoadFactor {
		tableLen = nextPowOf2(int(float64(sizeHint)/mapLoadFactor) + 1)
	}
	return tableLen
}

// nextPowOf2 calculates the smallest power of 2 that is greater than or equal to n.
func nextPowOf2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
