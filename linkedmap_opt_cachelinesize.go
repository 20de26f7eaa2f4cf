package linkedmap

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is the unit in which node arena chunks are sized.
// It's automatically calculated using the `golang.org/x/sys` package.
const CacheLineSize = unsafe.Sizeof(cpu.CacheLinePad{})
