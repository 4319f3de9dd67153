// Package alloc provides the allocation strategies that carve a heap.Region
// into variable-sized blocks.
//
// # Overview
//
// Every strategy implements the Allocator interface:
//
//   - Init(region): one-time hand-over of the arena
//   - Allocate(layout): an aligned address, or ErrOutOfMemory
//   - Deallocate(addr, layout): return a block, with the same layout it was allocated with
//
// The allocators keep no record of live blocks. Deallocate trusts the caller
// to present exactly the address and Layout an earlier Allocate produced.
// CheckedAllocator adds that record for tests and debug builds.
//
// # Implementations
//
// BumpAllocator: monotonic pointer
//
//   - O(1) allocation
//   - Memory comes back only when every block has been deallocated
//
// LinkedListAllocator: first-fit free list
//
//   - Free regions carry an intrusive 16-byte node (size, next)
//   - Freed blocks are pushed on the head; adjacent regions are not coalesced
//   - Requests are padded so any granted block can later hold a node (SizeAlign)
//
// FixedBlockAllocator: segregated size classes
//
//   - One intrusive list per class, default classes 8 B to 2 KiB
//   - O(1) allocation and deallocation when the class list is non-empty
//   - Misses and oversized requests go to an embedded LinkedListAllocator
//
// DummyAllocator: never allocates; useful as a placeholder and for OOM tests.
//
// # Usage Example
//
//	r := heap.NewRegion(0x1000, make([]byte, 4096))
//	a, err := alloc.New(alloc.StrategyFixedBlock, nil)
//	if err != nil {
//	    return err
//	}
//	a.Init(r)
//
//	l := alloc.MustLayout(100, 8)
//	addr, err := a.Allocate(l) // served by the 128-byte class
//	if err != nil {
//	    return err
//	}
//	b, _ := r.Bytes(addr, l.Size)
//	copy(b, payload)
//
//	a.Deallocate(addr, l)
//
// # Size Classes
//
// The default table (ConfigDefault):
//
//	Class 0:    8 bytes
//	Class 1:   16 bytes
//	Class 2:   32 bytes
//	Class 3:   64 bytes
//	Class 4:  128 bytes
//	Class 5:  256 bytes
//	Class 6:  512 bytes
//	Class 7: 1024 bytes
//	Class 8: 2048 bytes
//	(larger: fallback allocator)
//
// A request lands in the smallest class >= max(size, align).
//
// # Errors
//
// ErrOutOfMemory is the only error Allocate returns and is never retried
// internally. Contract violations that an allocator can detect (double Init,
// more deallocations than allocations, free blocks too small or misaligned for
// a node) panic with an error wrapping ErrPrecondition.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Use heap/locked to share one.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap: the Region arena
//   - github.com/joshuapare/heapkit/heap/locked: spin-lock wrapper and heap initialization
package alloc
