package alloc

import "github.com/joshuapare/heapkit/heap"

// DummyAllocator satisfies Allocator without ever handing out memory. It is
// the placeholder installed before a real strategy exists, and a convenient
// way to exercise out-of-memory paths.
type DummyAllocator struct {
	stats Stats
}

// Init accepts and ignores the region.
func (d *DummyAllocator) Init(*heap.Region) {}

// Allocate always fails.
func (d *DummyAllocator) Allocate(l Layout) (heap.Addr, error) {
	d.stats.AllocCalls++
	d.stats.AllocFailed++
	logOOM(StrategyDummy, l)
	return 0, ErrOutOfMemory
}

// Deallocate always panics: nothing was ever allocated.
func (d *DummyAllocator) Deallocate(addr heap.Addr, _ Layout) {
	precondition("dummy: Deallocate(0x%x) but nothing was ever allocated", addr)
}

// Stats returns the call counters.
func (d *DummyAllocator) Stats() Stats { return d.stats }

// Compile-time interface check
var _ Allocator = (*DummyAllocator)(nil)
