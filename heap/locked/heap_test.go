package locked

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
)

const testHeapStart = heap.Addr(0x1000)

func newTestHeap(t *testing.T, s alloc.Strategy, size int) *Heap {
	t.Helper()
	a, err := alloc.New(s, nil)
	require.NoError(t, err)
	h := New(a)
	h.Init(heap.NewRegion(testHeapStart, make([]byte, size)))
	return h
}

func TestHeap_GuardUnlockIsIdempotent(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyFreeList, 4096)

	g := h.Lock()
	require.Nil(t, h.TryLock(), "heap must be held")
	_, err := g.Allocator().Allocate(alloc.MustLayout(16, 8))
	require.NoError(t, err)

	g.Unlock()
	g.Unlock()

	g2 := h.TryLock()
	require.NotNil(t, g2)
	g2.Unlock()
}

func TestHeap_GuardAfterUnlockPanics(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyBump, 4096)
	g := h.Lock()
	g.Unlock()

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		err, ok := rec.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, alloc.ErrPrecondition)
	}()
	g.Allocator()
}

func TestHeap_WithReleasesOnError(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyFreeList, 4096)
	errBoom := errors.New("boom")

	err := h.With(func(a alloc.Allocator) error {
		_, err := a.Allocate(alloc.MustLayout(32, 8))
		require.NoError(t, err)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	g := h.TryLock()
	require.NotNil(t, g, "With must release the lock on error")
	g.Unlock()
}

func TestHeap_WithReleasesOnPanic(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyFreeList, 4096)

	assert.Panics(t, func() {
		_ = h.With(func(alloc.Allocator) error { panic("inside critical section") })
	})

	g := h.TryLock()
	require.NotNil(t, g, "With must release the lock on panic")
	g.Unlock()
}

func TestHeap_AllocateDeallocate(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyFixedBlock, 4096)
	l := alloc.MustLayout(24, 8)

	addr, err := h.Allocate(l)
	require.NoError(t, err)
	require.Zero(t, addr%8)

	h.Deallocate(addr, l)
	again, err := h.Allocate(l)
	require.NoError(t, err)
	require.Equal(t, addr, again, "freed class block is reused")

	st := h.Stats()
	require.Equal(t, 2, st.AllocCalls)
	require.Equal(t, 1, st.FreeCalls)
}

func TestHeap_AllocateZeroed(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyFreeList, 4096)
	l := alloc.MustLayout(64, 8)

	addr, err := h.Allocate(l)
	require.NoError(t, err)
	b, err := h.Bytes(addr, l.Size)
	require.NoError(t, err)
	for i := range b {
		b[i] = 0xFF
	}
	h.Deallocate(addr, l)

	zaddr, err := h.AllocateZeroed(l)
	require.NoError(t, err)
	require.Equal(t, addr, zaddr)
	zb, err := h.Bytes(zaddr, l.Size)
	require.NoError(t, err)
	require.Equal(t, make([]byte, l.Size), zb)
}

func TestHeap_ReallocateCopies(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyFreeList, 4096)
	old := alloc.MustLayout(16, 8)

	addr, err := h.Allocate(old)
	require.NoError(t, err)
	b, err := h.Bytes(addr, old.Size)
	require.NoError(t, err)
	copy(b, "0123456789abcdef")

	naddr, err := h.Reallocate(addr, old, 64)
	require.NoError(t, err)
	require.NotEqual(t, addr, naddr)

	nb, err := h.Bytes(naddr, 16)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef", string(nb))

	// Shrinking keeps the prefix.
	saddr, err := h.Reallocate(naddr, alloc.MustLayout(64, 8), 4)
	require.NoError(t, err)
	sb, err := h.Bytes(saddr, 4)
	require.NoError(t, err)
	require.Equal(t, "0123", string(sb))
}

func TestHeap_ReallocateOOMKeepsOldBlock(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyBump, 64)
	old := alloc.MustLayout(32, 8)

	addr, err := h.Allocate(old)
	require.NoError(t, err)
	b, err := h.Bytes(addr, old.Size)
	require.NoError(t, err)
	copy(b, "still here")

	_, err = h.Reallocate(addr, old, 64)
	require.ErrorIs(t, err, alloc.ErrOutOfMemory)

	b, err = h.Bytes(addr, 10)
	require.NoError(t, err)
	require.Equal(t, "still here", string(b))

	// The old block is still live: freeing it resets the bump heap.
	h.Deallocate(addr, old)
	addr, err = h.Allocate(alloc.MustLayout(64, 8))
	require.NoError(t, err)
	require.Equal(t, testHeapStart, addr)
}

func TestHeap_BytesBeforeInit(t *testing.T) {
	h := New(alloc.NewBump())
	_, err := h.Bytes(0x1000, 8)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Nil(t, h.Region())
}

func TestHeap_InitTwicePanics(t *testing.T) {
	h := newTestHeap(t, alloc.StrategyFreeList, 4096)
	assert.Panics(t, func() {
		h.Init(heap.NewRegion(0x10000, make([]byte, 4096)))
	})

	g := h.TryLock()
	require.NotNil(t, g, "a panicking Init must not leave the heap locked")
	g.Unlock()
}

// TestHeap_ConcurrentAllocate hammers one heap from several goroutines and
// checks that no two live blocks overlap.
func TestHeap_ConcurrentAllocate(t *testing.T) {
	for _, s := range []alloc.Strategy{alloc.StrategyFreeList, alloc.StrategyFixedBlock} {
		t.Run(s.String(), func(t *testing.T) {
			a, err := alloc.New(s, nil)
			require.NoError(t, err)
			checked := alloc.NewChecked(a)
			h := New(checked)
			h.Init(heap.NewRegion(testHeapStart, make([]byte, 4<<20)))

			const workers = 8
			layouts := []alloc.Layout{
				alloc.MustLayout(8, 8), alloc.MustLayout(40, 8),
				alloc.MustLayout(100, 16), alloc.MustLayout(3000, 64),
			}

			var (
				mu   sync.Mutex
				kept []heap.Addr
				wg   sync.WaitGroup
			)
			for w := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := range 200 {
						l := layouts[(w+i)%len(layouts)]
						addr, err := h.Allocate(l)
						if !assert.NoError(t, err) {
							return
						}
						if i%2 == 0 {
							h.Deallocate(addr, l)
							continue
						}
						mu.Lock()
						kept = append(kept, addr)
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			live := checked.Live()
			require.Len(t, live, len(kept))
			sort.Slice(live, func(i, j int) bool { return live[i].Addr < live[j].Addr })
			for i := 1; i < len(live); i++ {
				prev := live[i-1]
				require.LessOrEqual(t, prev.Addr+prev.Layout.Size, live[i].Addr)
			}
		})
	}
}
