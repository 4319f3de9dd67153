// Package heap provides the arena that heapkit allocators carve up.
//
// # Overview
//
// A Region is a single contiguous byte range with a start address. It is
// handed once to an allocator strategy (see heap/alloc) which then owns it
// exclusively for the region's lifetime. Allocators hand out addresses, not
// slices; Region.Bytes turns an address back into the bytes behind it.
//
// # Addresses
//
// Addresses are plain integers (Addr). Address a lives at byte offset
// a - Start() of the backing slice. Free-space bookkeeping is stored inside
// the region itself as little-endian words at those offsets, so an address
// is only meaningful together with the region that issued it.
//
// Address 0 is reserved as the end-of-list marker, so regions never start at 0.
//
// # Creating Regions
//
// Map reserves anonymous memory outside the Go heap and uses its real address
// as the region start:
//
//	r, err := heap.Map(100 << 10)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
// NewRegion wraps an existing slice with a chosen start address, which is how
// tests and simulations get reproducible addresses:
//
//	r := heap.NewRegion(0x1000, make([]byte, 4096))
//
// # Thread Safety
//
// Region itself performs no synchronization. Its bytes are mutated by the
// owning allocator; share it only through heap/locked.
package heap
