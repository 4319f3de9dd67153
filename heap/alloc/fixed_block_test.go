package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
)

func newTestFixedBlock(t *testing.T, size int, config *SizeClassConfig) (*FixedBlockAllocator, *heap.Region) {
	t.Helper()
	fa, err := NewFixedBlock(config)
	require.NoError(t, err)
	r := newTestRegion(t, size)
	fa.Init(r)
	return fa, r
}

// TestFixedBlock_MissCarvesOneBlock tests that an empty class asks the
// fallback for exactly one class-sized, class-aligned block.
func TestFixedBlock_MissCarvesOneBlock(t *testing.T) {
	fa, _ := newTestFixedBlock(t, testHeapSize, nil)

	addr, err := fa.Allocate(MustLayout(100, 8))
	require.NoError(t, err)
	assert.Equal(t, heap.Addr(0x1000), addr)
	assert.Zero(t, addr%128, "class blocks are aligned to their size")

	fb := fa.Fallback()
	assert.Equal(t, 1, fb.Stats().AllocCalls)
	assert.Equal(t, int64(128), fb.Stats().BytesAllocated)
	assert.Equal(t, []Span{{Start: 0x1080, Size: testHeapSize - 128}}, fb.FreeRegions())

	for i := range fa.BlockSizes() {
		assert.Zero(t, fa.ClassLen(i), "no class is pre-provisioned")
	}
}

// TestFixedBlock_ClassReuse tests that a freed block serves the next request
// of its class before any oversized request is served.
func TestFixedBlock_ClassReuse(t *testing.T) {
	fa, _ := newTestFixedBlock(t, testHeapSize, nil)

	idx, ok := fa.ListIndex(MustLayout(100, 8))
	require.True(t, ok)
	require.Equal(t, 4, idx)
	require.Equal(t, uintptr(128), fa.BlockSizes()[idx])

	a, err := fa.Allocate(MustLayout(100, 8))
	require.NoError(t, err)
	fa.Deallocate(a, MustLayout(100, 8))
	assert.Equal(t, 1, fa.ClassLen(4))

	big, err := fa.Allocate(MustLayout(3000, 8))
	require.NoError(t, err)
	assert.NotEqual(t, a, big, "oversized requests never take class blocks")
	assert.Equal(t, 1, fa.ClassLen(4))

	b, err := fa.Allocate(MustLayout(65, 1))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Zero(t, fa.ClassLen(4))
	assert.Equal(t, 1, fa.Stats().ClassHits)
}

// TestFixedBlock_LIFO tests that each class list pops the most recently freed block.
func TestFixedBlock_LIFO(t *testing.T) {
	fa, _ := newTestFixedBlock(t, testHeapSize, nil)
	l := MustLayout(32, 8)

	var addrs []heap.Addr
	for range 4 {
		addr, err := fa.Allocate(l)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	for _, addr := range addrs {
		fa.Deallocate(addr, l)
	}
	assert.Equal(t, 4, fa.ClassLen(2))

	for i := len(addrs) - 1; i >= 0; i-- {
		addr, err := fa.Allocate(l)
		require.NoError(t, err)
		assert.Equal(t, addrs[i], addr)
	}
}

// TestFixedBlock_ClassesAreSeparate tests that a freed block only serves its own class.
func TestFixedBlock_ClassesAreSeparate(t *testing.T) {
	fa, _ := newTestFixedBlock(t, testHeapSize, nil)

	a, err := fa.Allocate(MustLayout(64, 8))
	require.NoError(t, err)
	fa.Deallocate(a, MustLayout(64, 8))

	b, err := fa.Allocate(MustLayout(16, 8))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "a 16-byte request does not split a 64-byte block")

	c, err := fa.Allocate(MustLayout(8, 64))
	require.NoError(t, err)
	assert.Equal(t, a, c, "alignment picks the class too")
}

// TestFixedBlock_Oversized tests that large requests go straight to the fallback.
func TestFixedBlock_Oversized(t *testing.T) {
	fa, _ := newTestFixedBlock(t, 16<<10, nil)
	l := MustLayout(3000, 16)

	addr, err := fa.Allocate(l)
	require.NoError(t, err)
	assert.Zero(t, addr%16)
	assert.Equal(t, 1, fa.Stats().FallbackCalls)

	fa.Deallocate(addr, l)
	assert.Equal(t, Span{Start: addr, Size: SizeAlign(l).Size}, fa.Fallback().FreeRegions()[0])

	again, err := fa.Allocate(l)
	require.NoError(t, err)
	assert.Equal(t, addr, again)
}

// TestFixedBlock_SmallConfig tests a custom class table.
func TestFixedBlock_SmallConfig(t *testing.T) {
	fa, _ := newTestFixedBlock(t, testHeapSize, &ConfigSmall)

	_, ok := fa.ListIndex(MustLayout(300, 8))
	assert.False(t, ok)

	addr, err := fa.Allocate(MustLayout(300, 8))
	require.NoError(t, err)
	fa.Deallocate(addr, MustLayout(300, 8))
	for i := range fa.BlockSizes() {
		assert.Zero(t, fa.ClassLen(i))
	}
}

// TestFixedBlock_Exhaustion tests that a full arena reports ErrOutOfMemory.
func TestFixedBlock_Exhaustion(t *testing.T) {
	fa, r := newTestFixedBlock(t, testHeapSize, nil)

	var blocks []block
	for {
		l := MustLayout(200, 8)
		addr, err := fa.Allocate(l)
		if err != nil {
			require.ErrorIs(t, err, ErrOutOfMemory)
			break
		}
		blocks = append(blocks, block{addr, l})
	}
	assert.Len(t, blocks, testHeapSize/256)
	requireDisjoint(t, r, blocks)
	assert.Equal(t, 1, fa.Stats().AllocFailed)

	for _, b := range blocks {
		fa.Deallocate(b.addr, b.layout)
	}
	idx, _ := fa.ListIndex(MustLayout(200, 8))
	assert.Equal(t, len(blocks), fa.ClassLen(idx))
}

func TestNewFixedBlock_BadConfig(t *testing.T) {
	_, err := NewFixedBlock(&SizeClassConfig{Name: "bad", BlockSizes: []uintptr{8, 12}})
	require.ErrorIs(t, err, ErrBadConfig)
}

// TestFixedBlock_Preconditions tests the fatal contract violations.
func TestFixedBlock_Preconditions(t *testing.T) {
	t.Run("double init", func(t *testing.T) {
		fa, _ := newTestFixedBlock(t, testHeapSize, nil)
		requirePrecondition(t, func() { fa.Init(newTestRegion(t, testHeapSize)) })
	})

	t.Run("deallocate before init", func(t *testing.T) {
		fa, err := NewFixedBlock(nil)
		require.NoError(t, err)
		requirePrecondition(t, func() { fa.Deallocate(0x1000, MustLayout(16, 8)) })
	})

	t.Run("misaligned block", func(t *testing.T) {
		fa, _ := newTestFixedBlock(t, testHeapSize, nil)
		requirePrecondition(t, func() { fa.Deallocate(0x1003, MustLayout(16, 8)) })
	})

	t.Run("class block outside region", func(t *testing.T) {
		fa, _ := newTestFixedBlock(t, testHeapSize, nil)
		requirePrecondition(t, func() { fa.Deallocate(0x8000, MustLayout(16, 8)) })
		requirePrecondition(t, func() { fa.Deallocate(testHeapStart+testHeapSize-8, MustLayout(16, 8)) })
	})

	t.Run("oversized block outside region", func(t *testing.T) {
		fa, _ := newTestFixedBlock(t, testHeapSize, nil)
		requirePrecondition(t, func() { fa.Deallocate(0x8000, MustLayout(4096, 8)) })
	})
}
