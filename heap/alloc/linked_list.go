package alloc

import (
	"fmt"
	"sort"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// LinkedListAllocator is a first-fit allocator over an intrusive singly linked
// list of free regions.
//
// Every free region starts with a 16-byte node (size, next) written into the
// region itself. The list head lives in the allocator struct and plays the
// role of a zero-sized sentinel node.
//
//   - Allocate scans from the head and takes the first region that fits,
//     returning any usable tail to the list.
//   - Deallocate pushes the block onto the head, so recently freed memory is
//     found first.
//   - Adjacent free regions are never merged. Mixed-size churn can therefore
//     fragment the region into pieces too small for later requests.
//
// Every granted block is rounded so that it can hold a node once freed; see
// SizeAlign.
type LinkedListAllocator struct {
	r *heap.Region

	// head is the address of the first free node, or 0 when the list is empty.
	head heap.Addr

	stats Stats
}

// NewLinkedList returns an uninitialized free-list allocator. Call Init before use.
func NewLinkedList() *LinkedListAllocator {
	return &LinkedListAllocator{}
}

// Init installs the whole region as a single free node. The region start must
// be 8-byte aligned and the region must be large enough to hold a node.
func (la *LinkedListAllocator) Init(r *heap.Region) {
	if la.r != nil {
		precondition("linked list: Init called twice")
	}
	la.r = r
	la.addFreeRegion(r.Start(), r.Size())
}

// SizeAlign normalizes a request so the granted block can later host a
// free-list node: the alignment is raised to at least the node alignment and
// the size is padded to a multiple of that alignment and to at least a node.
// Allocate and Deallocate both apply it, which keeps them consistent.
func SizeAlign(l Layout) Layout {
	align := max(l.Align, listNodeAlign)
	size := max(format.AlignUp(l.Size, align), listNodeSize)
	return Layout{Size: size, Align: align}
}

// addFreeRegion writes a node describing [addr, addr+size) and pushes it onto
// the head of the list.
func (la *LinkedListAllocator) addFreeRegion(addr heap.Addr, size uintptr) {
	if !format.IsAligned(addr, listNodeAlign) {
		precondition("linked list: free region 0x%x is not %d-byte aligned", addr, listNodeAlign)
	}
	if size < listNodeSize {
		precondition("linked list: free region 0x%x of %d bytes cannot hold a node", addr, size)
	}
	if !la.r.Contains(addr, size) {
		precondition("linked list: free region [0x%x, +%d) outside %s", addr, size, la.r)
	}

	writeListNode(la.r, listNode{addr: addr, size: size, next: la.head})
	la.head = addr
}

// setNext links prev to next, where prev == 0 names the sentinel head.
func (la *LinkedListAllocator) setNext(prev, next heap.Addr) {
	if prev == format.NilLink {
		la.head = next
		return
	}
	writeListNext(la.r, prev, next)
}

// allocFromRegion returns where a block of the given size and alignment would
// start inside n, or false if n cannot host it. A nonzero tail that is too
// small to become a node disqualifies the region; the tail would otherwise be
// lost for good.
func allocFromRegion(n listNode, size, align uintptr) (heap.Addr, bool) {
	allocStart := format.AlignUp(n.addr, align)
	if allocStart < n.addr {
		return 0, false
	}
	allocEnd, ok := buf.AddAddr(allocStart, size)
	if !ok || allocEnd > n.end() {
		return 0, false
	}
	excess := n.end() - allocEnd
	if excess > 0 && excess < listNodeSize {
		return 0, false
	}
	return allocStart, true
}

// findRegion scans for the first region that fits and unlinks it.
func (la *LinkedListAllocator) findRegion(size, align uintptr) (listNode, heap.Addr, bool) {
	prev := heap.Addr(format.NilLink)
	for cur := la.head; cur != format.NilLink; {
		n := readListNode(la.r, cur)
		if allocStart, ok := allocFromRegion(n, size, align); ok {
			la.setNext(prev, n.next)
			return n, allocStart, true
		}
		prev, cur = cur, n.next
	}
	return listNode{}, 0, false
}

// Allocate performs a first-fit scan of the free list.
func (la *LinkedListAllocator) Allocate(l Layout) (heap.Addr, error) {
	la.stats.AllocCalls++

	sl := SizeAlign(l)
	if sl.Size < l.Size {
		la.stats.AllocFailed++
		logOOM(StrategyFreeList, l)
		return 0, ErrOutOfMemory
	}

	region, allocStart, ok := la.findRegion(sl.Size, sl.Align)
	if !ok {
		la.stats.AllocFailed++
		logOOM(StrategyFreeList, l)
		return 0, ErrOutOfMemory
	}

	allocEnd := allocStart + sl.Size
	if excess := region.end() - allocEnd; excess > 0 {
		la.addFreeRegion(allocEnd, excess)
	}

	la.stats.BytesAllocated += int64(sl.Size)
	return allocStart, nil
}

// Deallocate pushes the block back onto the head of the free list.
func (la *LinkedListAllocator) Deallocate(addr heap.Addr, l Layout) {
	if la.r == nil {
		precondition("linked list: Deallocate before Init")
	}
	sl := SizeAlign(l)
	la.stats.FreeCalls++
	la.stats.BytesFreed += int64(sl.Size)
	la.addFreeRegion(addr, sl.Size)
}

// FreeRegions returns the free list in list order (most recently freed first).
func (la *LinkedListAllocator) FreeRegions() []Span {
	var spans []Span
	if la.r == nil {
		return spans
	}
	for cur := la.head; cur != format.NilLink; {
		n := readListNode(la.r, cur)
		spans = append(spans, Span{Start: n.addr, Size: n.size})
		cur = n.next
	}
	return spans
}

// FreeBytes returns the total size of all free regions.
func (la *LinkedListAllocator) FreeBytes() uintptr {
	var total uintptr
	for _, s := range la.FreeRegions() {
		total += s.Size
	}
	return total
}

// Validate walks the free list and checks its invariants: every node is
// aligned, lies inside the region, can hold a node, and overlaps no other
// node; the list terminates.
func (la *LinkedListAllocator) Validate() error {
	if la.r == nil {
		return nil
	}
	limit := int(la.r.Size()/listNodeSize) + 1

	var spans []Span
	for cur := la.head; cur != format.NilLink; {
		if len(spans) > limit {
			return fmt.Errorf("%w: cycle after %d nodes", ErrCorrupt, len(spans))
		}
		if !format.IsAligned(cur, listNodeAlign) {
			return fmt.Errorf("%w: node 0x%x: %w", ErrCorrupt, cur, format.ErrMisaligned)
		}
		if !la.r.Contains(cur, listNodeSize) {
			return fmt.Errorf("%w: node 0x%x outside %s", ErrCorrupt, cur, la.r)
		}
		n := readListNode(la.r, cur)
		if n.size < listNodeSize {
			return fmt.Errorf("%w: node 0x%x has size %d", ErrCorrupt, cur, n.size)
		}
		if !la.r.Contains(n.addr, n.size) {
			return fmt.Errorf("%w: node 0x%x size %d runs past %s", ErrCorrupt, cur, n.size, la.r)
		}
		spans = append(spans, Span{Start: n.addr, Size: n.size})
		cur = n.next
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	for i := 1; i < len(spans); i++ {
		if spans[i].Start < spans[i-1].End() {
			return fmt.Errorf("%w: free regions 0x%x and 0x%x overlap", ErrCorrupt, spans[i-1].Start, spans[i].Start)
		}
	}
	return nil
}

// Stats returns the call counters.
func (la *LinkedListAllocator) Stats() Stats { return la.stats }

// Compile-time interface check
var _ Allocator = (*LinkedListAllocator)(nil)
