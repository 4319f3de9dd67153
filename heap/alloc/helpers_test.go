package alloc

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
)

const (
	// testHeapStart mirrors the classic example arena at 0x1000.
	testHeapStart = heap.Addr(0x1000)

	// testHeapSize is one 4 KiB page.
	testHeapSize = 4096
)

// newTestRegion creates a region of size bytes at testHeapStart.
func newTestRegion(t testing.TB, size int) *heap.Region {
	t.Helper()
	return heap.NewRegion(testHeapStart, make([]byte, size))
}

// newInitialized builds an allocator for s and hands it a fresh test region.
func newInitialized(t testing.TB, s Strategy, size int) (Allocator, *heap.Region) {
	t.Helper()
	a, err := New(s, nil)
	require.NoError(t, err)
	r := newTestRegion(t, size)
	a.Init(r)
	return a, r
}

// requirePrecondition asserts that fn panics with an ErrPrecondition error.
func requirePrecondition(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		rec := recover()
		require.NotNil(t, rec, "expected a precondition panic")
		err, ok := rec.(error)
		require.True(t, ok, "panic value should be an error, got %T", rec)
		require.ErrorIs(t, err, ErrPrecondition)
	}()
	fn()
}

// block is a granted allocation as tracked by a test.
type block struct {
	addr   heap.Addr
	layout Layout
}

// requireDisjoint checks that every block lies in r and no two blocks overlap.
func requireDisjoint(t testing.TB, r *heap.Region, blocks []block) {
	t.Helper()
	sorted := make([]block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].addr < sorted[j].addr })

	for i, b := range sorted {
		require.True(t, r.Contains(b.addr, b.layout.Size),
			"block 0x%x %s outside %s", b.addr, b.layout, r)
		if i > 0 {
			prev := sorted[i-1]
			require.LessOrEqual(t, prev.addr+prev.layout.Size, b.addr,
				"block 0x%x %s overlaps 0x%x %s", prev.addr, prev.layout, b.addr, b.layout)
		}
	}
}
