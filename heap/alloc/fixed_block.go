package alloc

import (
	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

// FixedBlockAllocator keeps one intrusive free list per size class and uses a
// LinkedListAllocator as its fallback.
//
// Allocation path:
//
//	request -> class index -> class list non-empty: pop head, O(1)
//	                       -> class list empty:     fallback.Allocate(class, class)
//	        -> no class (oversized)              -> fallback.Allocate(request)
//
// Blocks are never returned to the fallback once carved for a class; a freed
// 128-byte block stays on the 128-byte list. Every request is rounded up to
// its class size, trading internal fragmentation for constant-time reuse.
type FixedBlockAllocator struct {
	r *heap.Region

	// Size class configuration and lookup table
	sizeTable *sizeClassTable

	// heads[i] is the first free block of class i, or 0.
	heads []heap.Addr

	fallback LinkedListAllocator

	stats Stats
}

// NewFixedBlock creates a fixed-size-block allocator.
//
// Parameters:
//   - config: Size class configuration (use nil for DefaultSizeClasses)
func NewFixedBlock(config *SizeClassConfig) (*FixedBlockAllocator, error) {
	if config == nil {
		config = &DefaultSizeClasses
	}
	sizeTable, err := newSizeClassTable(*config)
	if err != nil {
		return nil, err
	}
	return &FixedBlockAllocator{
		sizeTable: sizeTable,
		heads:     make([]heap.Addr, sizeTable.NumClasses()),
	}, nil
}

// Init leaves every class list empty and gives the whole region to the fallback.
func (fa *FixedBlockAllocator) Init(r *heap.Region) {
	if fa.r != nil {
		precondition("fixed block: Init called twice")
	}
	fa.r = r
	fa.fallback.Init(r)
}

// ListIndex returns the class that would serve l, or false if l is oversized.
func (fa *FixedBlockAllocator) ListIndex(l Layout) (int, bool) {
	return fa.sizeTable.listIndex(l)
}

// Allocate serves l from its class list, growing the class lazily through
// the fallback when the list is empty.
func (fa *FixedBlockAllocator) Allocate(l Layout) (heap.Addr, error) {
	fa.stats.AllocCalls++

	idx, ok := fa.sizeTable.listIndex(l)
	if !ok {
		fa.stats.FallbackCalls++
		addr, err := fa.fallback.Allocate(l)
		if err != nil {
			fa.stats.AllocFailed++
			logOOM(StrategyFixedBlock, l)
			return 0, err
		}
		fa.stats.BytesAllocated += int64(SizeAlign(l).Size)
		return addr, nil
	}

	size := fa.sizeTable.blockSize(idx)
	if head := fa.heads[idx]; head != format.NilLink {
		fa.heads[idx] = readBlockNext(fa.r, head)
		fa.stats.ClassHits++
		fa.stats.BytesAllocated += int64(size)
		return head, nil
	}

	// Only one block is carved per miss; the class grows as blocks are freed.
	fa.stats.FallbackCalls++
	addr, err := fa.fallback.Allocate(Layout{Size: size, Align: size})
	if err != nil {
		fa.stats.AllocFailed++
		logOOM(StrategyFixedBlock, l)
		return 0, err
	}
	if logAlloc {
		logger.Debug("class refill", "class", idx, "block", size, "addr", addr)
	}
	fa.stats.BytesAllocated += int64(size)
	return addr, nil
}

// Deallocate pushes class-sized blocks onto their class list and hands
// oversized blocks back to the fallback.
func (fa *FixedBlockAllocator) Deallocate(addr heap.Addr, l Layout) {
	if fa.r == nil {
		precondition("fixed block: Deallocate before Init")
	}
	fa.stats.FreeCalls++

	idx, ok := fa.sizeTable.listIndex(l)
	if !ok {
		fa.stats.BytesFreed += int64(SizeAlign(l).Size)
		fa.fallback.Deallocate(addr, l)
		return
	}

	size := fa.sizeTable.blockSize(idx)
	if blockNodeSize > size || blockNodeAlign > size {
		precondition("fixed block: class %d (%d bytes) cannot hold a node", idx, size)
	}
	if !format.IsAligned(addr, blockNodeAlign) {
		precondition("fixed block: block 0x%x is not %d-byte aligned", addr, blockNodeAlign)
	}
	if !fa.r.Contains(addr, size) {
		precondition("fixed block: block [0x%x, +%d) outside %s", addr, size, fa.r)
	}
	writeBlockNext(fa.r, addr, fa.heads[idx])
	fa.heads[idx] = addr
	fa.stats.BytesFreed += int64(size)
}

// ClassLen returns the number of free blocks on class list i.
func (fa *FixedBlockAllocator) ClassLen(i int) int {
	n := 0
	for cur := fa.heads[i]; cur != format.NilLink; cur = readBlockNext(fa.r, cur) {
		n++
	}
	return n
}

// BlockSizes returns a copy of the class sizes.
func (fa *FixedBlockAllocator) BlockSizes() []uintptr {
	out := make([]uintptr, fa.sizeTable.NumClasses())
	copy(out, fa.sizeTable.sizes)
	return out
}

// Fallback exposes the embedded free-list allocator for inspection.
func (fa *FixedBlockAllocator) Fallback() *LinkedListAllocator { return &fa.fallback }

// Stats returns the call counters of the class layer. Fallback().Stats()
// reports the fallback separately.
func (fa *FixedBlockAllocator) Stats() Stats { return fa.stats }

// Compile-time interface check
var _ Allocator = (*FixedBlockAllocator)(nil)
