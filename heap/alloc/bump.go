package alloc

import (
	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// BumpAllocator hands out memory by advancing a single pointer.
//
// Key characteristics:
//   - O(1) allocation: align next, advance it, count the block
//   - Zero bookkeeping inside the arena: no nodes, no lists
//   - Reclamation is all-or-nothing: next returns to the start of the region
//     only when every outstanding block has been deallocated
//
// A single long-lived block therefore pins the whole region. This allocator
// suits phase-structured workloads where everything is released together.
type BumpAllocator struct {
	r *heap.Region

	heapStart heap.Addr
	heapEnd   heap.Addr

	// next is the first address not yet handed out.
	next heap.Addr

	// allocations counts blocks handed out and not yet deallocated.
	allocations int

	stats Stats
}

// NewBump returns an uninitialized bump allocator. Call Init before use.
func NewBump() *BumpAllocator {
	return &BumpAllocator{}
}

// Init makes the whole region available. Calling it twice panics.
func (ba *BumpAllocator) Init(r *heap.Region) {
	if ba.r != nil {
		precondition("bump: Init called twice")
	}
	ba.r = r
	ba.heapStart = r.Start()
	ba.heapEnd = r.End()
	ba.next = ba.heapStart
	ba.allocations = 0
}

// Allocate aligns the bump pointer and advances it by l.Size. A zero-size
// request does not advance it, so several may share an address; once the
// region is full they fail like any other request.
func (ba *BumpAllocator) Allocate(l Layout) (heap.Addr, error) {
	ba.stats.AllocCalls++

	allocStart := format.AlignUp(ba.next, l.Align)
	allocEnd, ok := buf.AddAddr(allocStart, l.Size)
	if ba.r == nil || allocStart < ba.next || allocStart >= ba.heapEnd || !ok || allocEnd > ba.heapEnd {
		ba.stats.AllocFailed++
		logOOM(StrategyBump, l)
		return 0, ErrOutOfMemory
	}

	ba.next = allocEnd
	ba.allocations++
	ba.stats.BytesAllocated += int64(l.Size)
	return allocStart, nil
}

// Deallocate forgets one block. When the last outstanding block goes, the
// whole region becomes free again. The address itself is not inspected.
func (ba *BumpAllocator) Deallocate(_ heap.Addr, l Layout) {
	if ba.allocations == 0 {
		precondition("bump: Deallocate without a matching Allocate")
	}
	ba.stats.FreeCalls++
	ba.stats.BytesFreed += int64(l.Size)

	ba.allocations--
	if ba.allocations == 0 {
		ba.next = ba.heapStart
	}
}

// Next returns the address the next allocation will be aligned up from.
func (ba *BumpAllocator) Next() heap.Addr { return ba.next }

// Allocations returns the number of outstanding blocks.
func (ba *BumpAllocator) Allocations() int { return ba.allocations }

// Used returns the bytes between the region start and the bump pointer,
// alignment padding included.
func (ba *BumpAllocator) Used() uintptr { return ba.next - ba.heapStart }

// Stats returns the call counters.
func (ba *BumpAllocator) Stats() Stats { return ba.stats }

// Compile-time interface check
var _ Allocator = (*BumpAllocator)(nil)
