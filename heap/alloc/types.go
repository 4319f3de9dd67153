package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/format"
)

// Layout is the (size, alignment) pair of a request. The same Layout used to
// allocate a block must be presented again to deallocate it.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout validates align and returns the layout.
func NewLayout(size, align uintptr) (Layout, error) {
	if !format.IsPowerOfTwo(align) {
		return Layout{}, fmt.Errorf("%w: align %d is not a power of two", ErrBadLayout, align)
	}
	if format.AlignUp(size, align) < size {
		return Layout{}, fmt.Errorf("%w: size %d overflows at align %d", ErrBadLayout, size, align)
	}
	return Layout{Size: size, Align: align}, nil
}

// MustLayout is NewLayout for constant layouts; it panics on error.
func MustLayout(size, align uintptr) Layout {
	l, err := NewLayout(size, align)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Layout) String() string {
	return fmt.Sprintf("{size=%d align=%d}", l.Size, l.Align)
}

// Span is a contiguous address range, used to report free regions.
type Span struct {
	Start heap.Addr
	Size  uintptr
}

// End returns the address one past the span.
func (s Span) End() heap.Addr { return s.Start + s.Size }

// Stats holds allocator call counters for tests and instrumentation.
type Stats struct {
	AllocCalls     int   // Total Allocate() calls
	AllocFailed    int   // Allocate() calls that returned ErrOutOfMemory
	FreeCalls      int   // Total Deallocate() calls
	BytesAllocated int64 // Bytes handed out, after strategy rounding
	BytesFreed     int64 // Bytes taken back, after strategy rounding
	ClassHits      int   // Fixed-block only: served straight from a class list
	FallbackCalls  int   // Fixed-block only: requests forwarded to the fallback
}

// Allocator is the capability every strategy provides.
//
// Implementations:
//   - BumpAllocator: monotonic pointer, whole-arena reset when all blocks are freed
//   - LinkedListAllocator: first-fit intrusive free list, no coalescing
//   - FixedBlockAllocator: per-size-class lists with a LinkedListAllocator fallback
//   - DummyAllocator: never allocates
//   - CheckedAllocator: wraps another allocator and verifies every Deallocate
//
// Allocators are not safe for concurrent use; wrap them in heap/locked.
type Allocator interface {
	// Init hands the allocator its region. It must be called exactly once,
	// before any other method; a second call panics.
	Init(r *heap.Region)

	// Allocate returns the address of a block of at least l.Size bytes aligned
	// to l.Align, or ErrOutOfMemory. It never panics on exhaustion.
	Allocate(l Layout) (heap.Addr, error)

	// Deallocate returns the block at addr. addr and l must match an earlier
	// successful Allocate that has not been deallocated since. Violations are
	// undefined; those that are detected panic with ErrPrecondition.
	Deallocate(addr heap.Addr, l Layout)

	// Stats returns the call counters.
	Stats() Stats
}

// AlignUp returns the smallest address >= addr that is a multiple of align.
// align must be a power of two.
func AlignUp(addr heap.Addr, align uintptr) heap.Addr {
	return format.AlignUp(addr, align)
}
