package util

import (
	"sync/atomic"
	"unsafe"
)

// CacheLineSize is a reasonable default for most modern CPUs.
const CacheLineSize = 64

// CacheLinePad separates hot fields into distinct cache lines.
type CacheLinePad struct{ _ [CacheLineSize]byte }

// Counter is an atomic uint64 padded to one cache line, so that per-shard
// counters bumped from different goroutines do not share a line.
type Counter struct {
	atomic.Uint64
	_ [CacheLineSize - 8]byte
}

// Inc adds one.
func (c *Counter) Inc() { c.Add(1) }

// Compile-time size check: exactly one cache line.
var _ [CacheLineSize - int(unsafe.Sizeof(Counter{}))]byte
