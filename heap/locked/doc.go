// Package locked shares one allocator between goroutines.
//
// # Overview
//
// Allocators in heap/alloc mutate state on every call and perform no
// synchronization. A Heap pairs one of them with a SpinLock so that every
// operation runs inside a single critical section:
//
//	r, err := heap.Map(100 << 10)
//	if err != nil {
//	    return err
//	}
//	h, err := locked.InitHeap(r, locked.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	addr, err := h.Allocate(alloc.MustLayout(64, 8))
//
// Longer sequences hold the lock explicitly, either through a Guard or the
// scoped With helper:
//
//	err := h.With(func(a alloc.Allocator) error {
//	    x, err := a.Allocate(l1)
//	    ...
//	})
//
// # Deadlock hazard
//
// The lock is not reentrant and does not mask anything. Code that can run
// while the lock is held on the same thread of control (a signal or interrupt
// handler in a freestanding build, a callback invoked from inside With) must
// not allocate: it spins forever on a lock its own caller holds. There is no
// detection.
//
// # Configuration
//
// Config selects the strategy and its parameters. LoadConfig layers defaults,
// an optional YAML file, and HEAPKIT_* environment variables, in that order.
//
// # Global heap
//
// InitGlobal installs a process-lifetime Heap that Global returns. It can be
// installed exactly once.
package locked
