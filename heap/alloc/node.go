package alloc

import (
	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/internal/format"
)

// Intrusive node layouts. Both live inside the free memory they describe and
// are overwritten as soon as that memory is handed out again.
//
// Free-list node (LinkedListAllocator), 16 bytes, 8-aligned:
//
//	+0x00  size  uint64  bytes in this free region, node included
//	+0x08  next  uint64  address of the next node, 0 at the end
//
// Class node (FixedBlockAllocator), 8 bytes, 8-aligned:
//
//	+0x00  next  uint64  address of the next free block of the same class
const (
	listNodeSize  = 2 * format.WordSize
	listNodeAlign = format.WordSize

	listNodeSizeField = 0
	listNodeNextField = format.WordSize

	blockNodeSize  = format.WordSize
	blockNodeAlign = format.WordSize
)

// listNode is a decoded free-list node.
type listNode struct {
	addr heap.Addr
	size uintptr
	next heap.Addr
}

func (n listNode) end() heap.Addr { return n.addr + n.size }

func readListNode(r *heap.Region, addr heap.Addr) listNode {
	off := r.Offset(addr)
	mem := r.Raw()
	return listNode{
		addr: addr,
		size: uintptr(format.ReadWord(mem, off+listNodeSizeField)),
		next: format.ReadLink(mem, off+listNodeNextField),
	}
}

func writeListNode(r *heap.Region, n listNode) {
	off := r.Offset(n.addr)
	mem := r.Raw()
	format.PutWord(mem, off+listNodeSizeField, uint64(n.size))
	format.PutLink(mem, off+listNodeNextField, n.next)
}

func writeListNext(r *heap.Region, addr, next heap.Addr) {
	format.PutLink(r.Raw(), r.Offset(addr)+listNodeNextField, next)
}

func readBlockNext(r *heap.Region, addr heap.Addr) heap.Addr {
	return format.ReadLink(r.Raw(), r.Offset(addr))
}

func writeBlockNext(r *heap.Region, addr, next heap.Addr) {
	format.PutLink(r.Raw(), r.Offset(addr), next)
}
