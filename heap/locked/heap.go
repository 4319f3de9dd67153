package locked

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
)

// Heap serializes access to one allocator and its region.
type Heap struct {
	mu     SpinLock
	inner  alloc.Allocator
	region *heap.Region
}

// New wraps inner. The heap is unusable until Init hands it a region.
func New(inner alloc.Allocator) *Heap {
	return &Heap{inner: inner}
}

// Init gives the wrapped allocator its region under the lock. Like the
// allocator's own Init it may be called only once.
func (h *Heap) Init(r *heap.Region) {
	g := h.Lock()
	defer g.Unlock()
	g.Allocator().Init(r)
	h.region = r
}

// Guard is exclusive access to the wrapped allocator. It is released by
// Unlock; holding it past that point is a bug.
type Guard struct {
	h        *Heap
	released bool
}

// Lock blocks until the heap is free and returns the guard.
func (h *Heap) Lock() *Guard {
	h.mu.Lock()
	return &Guard{h: h}
}

// TryLock returns a guard if the heap is free, or nil.
func (h *Heap) TryLock() *Guard {
	if !h.mu.TryLock() {
		return nil
	}
	return &Guard{h: h}
}

// Allocator returns the wrapped allocator. It panics once the guard has been
// released.
func (g *Guard) Allocator() alloc.Allocator {
	if g.released {
		panic(fmt.Errorf("%w: allocator used after guard release", alloc.ErrPrecondition))
	}
	return g.h.inner
}

// Unlock releases the lock. Further calls do nothing.
func (g *Guard) Unlock() {
	if g.released {
		return
	}
	g.released = true
	g.h.mu.Unlock()
}

// With runs fn while holding the lock. The lock is released however fn
// returns, panics included.
func (h *Heap) With(fn func(a alloc.Allocator) error) error {
	g := h.Lock()
	defer g.Unlock()
	return fn(g.Allocator())
}

// Allocate reserves a block under the lock.
func (h *Heap) Allocate(l alloc.Layout) (heap.Addr, error) {
	g := h.Lock()
	defer g.Unlock()
	return g.Allocator().Allocate(l)
}

// Deallocate returns a block under the lock.
func (h *Heap) Deallocate(addr heap.Addr, l alloc.Layout) {
	g := h.Lock()
	defer g.Unlock()
	g.Allocator().Deallocate(addr, l)
}

// AllocateZeroed is Allocate followed by clearing the block. Freed blocks are
// handed out again with whatever they held, node words included.
func (h *Heap) AllocateZeroed(l alloc.Layout) (heap.Addr, error) {
	g := h.Lock()
	defer g.Unlock()

	addr, err := g.Allocator().Allocate(l)
	if err != nil {
		return 0, err
	}
	b, err := h.bytes(addr, l.Size)
	if err != nil {
		g.Allocator().Deallocate(addr, l)
		return 0, err
	}
	clear(b)
	return addr, nil
}

// Reallocate moves the block at addr, allocated with old, into a block of
// newSize bytes with the same alignment. The first min(old.Size, newSize)
// bytes are copied and the old block is freed. On failure the old block is
// untouched and still owned by the caller.
func (h *Heap) Reallocate(addr heap.Addr, old alloc.Layout, newSize uintptr) (heap.Addr, error) {
	nl, err := alloc.NewLayout(newSize, old.Align)
	if err != nil {
		return 0, err
	}

	g := h.Lock()
	defer g.Unlock()
	a := g.Allocator()

	naddr, err := a.Allocate(nl)
	if err != nil {
		return 0, err
	}
	n := min(old.Size, newSize)
	src, err := h.bytes(addr, n)
	if err != nil {
		a.Deallocate(naddr, nl)
		return 0, err
	}
	dst, err := h.bytes(naddr, n)
	if err != nil {
		a.Deallocate(naddr, nl)
		return 0, err
	}
	copy(dst, src)
	a.Deallocate(addr, old)
	return naddr, nil
}

// Bytes returns the n bytes at addr. The memory belongs to whoever allocated
// it, so no lock is taken.
func (h *Heap) Bytes(addr heap.Addr, n uintptr) ([]byte, error) {
	return h.bytes(addr, n)
}

func (h *Heap) bytes(addr heap.Addr, n uintptr) ([]byte, error) {
	if h.region == nil {
		return nil, ErrNotInitialized
	}
	return h.region.Bytes(addr, n)
}

// Region returns the region given to Init, or nil.
func (h *Heap) Region() *heap.Region { return h.region }

// Stats returns the wrapped allocator's counters.
func (h *Heap) Stats() alloc.Stats {
	g := h.Lock()
	defer g.Unlock()
	return g.Allocator().Stats()
}
