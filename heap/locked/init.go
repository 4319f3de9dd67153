package locked

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/format"
	"github.com/joshuapare/heapkit/internal/logger"
)

// InitHeap validates cfg, builds its allocator, and initializes it with r.
// r must start on a word boundary and hold at least cfg.HeapSize bytes; only
// the first cfg.HeapSize are used.
func InitHeap(r *heap.Region, cfg Config) (*Heap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !format.IsAligned(r.Start(), format.WordSize) {
		return nil, fmt.Errorf("%w: region start 0x%x is not %d-byte aligned", ErrInvalidConfig, r.Start(), format.WordSize)
	}
	if r.Size() < uintptr(cfg.HeapSize) {
		return nil, fmt.Errorf("%w: region %s smaller than heap size %d", ErrInvalidConfig, r, cfg.HeapSize)
	}
	if r.Size() > uintptr(cfg.HeapSize) {
		b, err := r.Bytes(r.Start(), uintptr(cfg.HeapSize))
		if err != nil {
			return nil, err
		}
		r = heap.NewRegion(r.Start(), b)
	}

	a, err := cfg.NewAllocator()
	if err != nil {
		return nil, err
	}
	if cfg.LogAlloc {
		alloc.SetLogAlloc(true)
	}

	h := New(a)
	h.Init(r)
	logger.Info("heap initialized",
		"strategy", cfg.Strategy.String(),
		"region", r.String(),
		"checked", cfg.Checked)
	return h, nil
}

var global atomic.Pointer[Heap]

// InitGlobal builds the process-wide heap. A second call panics; the first
// heap stays installed.
func InitGlobal(r *heap.Region, cfg Config) (*Heap, error) {
	if global.Load() != nil {
		panic(fmt.Errorf("%w: global heap already initialized", alloc.ErrPrecondition))
	}
	h, err := InitHeap(r, cfg)
	if err != nil {
		return nil, err
	}
	if !global.CompareAndSwap(nil, h) {
		panic(fmt.Errorf("%w: global heap already initialized", alloc.ErrPrecondition))
	}
	return h, nil
}

// Global returns the heap installed by InitGlobal, or nil.
func Global() *Heap { return global.Load() }
