package alloc

import (
	"os"
	"runtime"
	"slices"
	"sort"
	"strconv"

	"github.com/joshuapare/heapkit/heap"
)

// CheckedAllocator wraps an Allocator and keeps the registry of live
// allocations that the plain strategies deliberately do without. It turns
// the undefined behaviour of a bad Deallocate (unknown address, double free,
// different layout) into an immediate ErrPrecondition panic, and reports
// leaked blocks together with the code that allocated them.
//
// It costs a map entry and a runtime.Caller per allocation; use it in tests
// and debug builds.
type CheckedAllocator struct {
	mem Allocator
	sz  int64

	allocs map[heap.Addr]*dalloc
	// Zero-size blocks may legitimately share an address, with each other and
	// with a sized block, so they are kept per address.
	empty map[heap.Addr][]*dalloc
}

type dalloc struct {
	layout Layout
	pc     uintptr
	line   int
}

// LiveAllocation describes one block that has not been deallocated.
type LiveAllocation struct {
	Addr   heap.Addr
	Layout Layout
	Func   string
	Line   int
}

// NewChecked wraps mem.
func NewChecked(mem Allocator) *CheckedAllocator {
	return &CheckedAllocator{
		mem:    mem,
		allocs: make(map[heap.Addr]*dalloc),
		empty:  make(map[heap.Addr][]*dalloc),
	}
}

// Use the environment variable HEAPKIT_CHECKED_ALLOC_FRAMES to control how many
// frames up the caller of an allocation is recorded. Callers that go through
// heap/locked want a larger value to skip the wrapper.
const defAllocFrames = 1

var allocFrames = defAllocFrames

func init() {
	if val, ok := os.LookupEnv("HEAPKIT_CHECKED_ALLOC_FRAMES"); ok {
		if f, err := strconv.Atoi(val); err == nil {
			allocFrames = f
		}
	}
}

// Unwrap returns the wrapped allocator.
func (a *CheckedAllocator) Unwrap() Allocator { return a.mem }

// Init initializes the wrapped allocator.
func (a *CheckedAllocator) Init(r *heap.Region) { a.mem.Init(r) }

// Allocate forwards to the wrapped allocator and records the block.
func (a *CheckedAllocator) Allocate(l Layout) (heap.Addr, error) {
	addr, err := a.mem.Allocate(l)
	if err != nil {
		return 0, err
	}
	rec := &dalloc{layout: l}
	if pc, _, line, ok := runtime.Caller(allocFrames); ok {
		rec.pc, rec.line = pc, line
	}

	if l.Size == 0 {
		a.empty[addr] = append(a.empty[addr], rec)
		return addr, nil
	}
	if prev, ok := a.allocs[addr]; ok {
		precondition("checked: 0x%x handed out twice (live with layout %s)", addr, prev.layout)
	}
	a.sz += int64(l.Size)
	a.allocs[addr] = rec
	return addr, nil
}

// Deallocate verifies addr and l against the registry before forwarding.
func (a *CheckedAllocator) Deallocate(addr heap.Addr, l Layout) {
	if l.Size == 0 {
		a.deallocateEmpty(addr, l)
		return
	}
	rec, ok := a.allocs[addr]
	if !ok {
		precondition("checked: Deallocate(0x%x, %s) of memory that is not allocated", addr, l)
	}
	if rec.layout != l {
		precondition("checked: Deallocate(0x%x) with layout %s, allocated with %s", addr, l, rec.layout)
	}
	delete(a.allocs, addr)
	a.sz -= int64(l.Size)
	a.mem.Deallocate(addr, l)
}

func (a *CheckedAllocator) deallocateEmpty(addr heap.Addr, l Layout) {
	recs := a.empty[addr]
	if len(recs) == 0 {
		precondition("checked: Deallocate(0x%x, %s) of memory that is not allocated", addr, l)
	}
	i := slices.IndexFunc(recs, func(rec *dalloc) bool { return rec.layout == l })
	if i < 0 {
		precondition("checked: Deallocate(0x%x) with layout %s, allocated with %s", addr, l, recs[0].layout)
	}
	recs = slices.Delete(recs, i, i+1)
	if len(recs) == 0 {
		delete(a.empty, addr)
	} else {
		a.empty[addr] = recs
	}
	a.mem.Deallocate(addr, l)
}

// Stats returns the wrapped allocator's counters.
func (a *CheckedAllocator) Stats() Stats { return a.mem.Stats() }

// CurrentAlloc returns the requested bytes currently outstanding.
func (a *CheckedAllocator) CurrentAlloc() int { return int(a.sz) }

// Live returns the outstanding blocks ordered by address, zero-size blocks
// first at a shared address.
func (a *CheckedAllocator) Live() []LiveAllocation {
	out := make([]LiveAllocation, 0, len(a.allocs)+len(a.empty))
	add := func(addr heap.Addr, rec *dalloc) {
		la := LiveAllocation{Addr: addr, Layout: rec.layout, Line: rec.line}
		if f := runtime.FuncForPC(rec.pc); f != nil {
			la.Func = f.Name()
		}
		out = append(out, la)
	}
	for addr, rec := range a.allocs {
		add(addr, rec)
	}
	for addr, recs := range a.empty {
		for _, rec := range recs {
			add(addr, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Addr != out[j].Addr {
			return out[i].Addr < out[j].Addr
		}
		return out[i].Layout.Size < out[j].Layout.Size
	})
	return out
}

// TestingT is the subset of testing.TB that AssertSize reports through.
type TestingT interface {
	Errorf(format string, args ...interface{})
	Helper()
}

// AssertSize reports every live block as a leak when the outstanding byte
// count differs from sz.
func (a *CheckedAllocator) AssertSize(t TestingT, sz int) {
	t.Helper()
	if a.CurrentAlloc() == sz {
		return
	}
	for _, live := range a.Live() {
		t.Errorf("LEAK of %d bytes at 0x%x FROM %s line %d\n", live.Layout.Size, live.Addr, live.Func, live.Line)
	}
	t.Errorf("invalid memory size exp=%d, got=%d", sz, a.CurrentAlloc())
}

var _ Allocator = (*CheckedAllocator)(nil)
