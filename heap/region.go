package heap

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/mmregion"
)

// Addr is an address inside a Region.
type Addr = uintptr

// Region is the arena: a contiguous byte range starting at a fixed address.
type Region struct {
	start   Addr
	data    []byte
	cleanup func() error
}

// NewRegion wraps mem as a region whose first byte has address start.
// It panics when start is zero or the range wraps around the address space;
// both indicate a broken caller, not a runtime condition.
func NewRegion(start Addr, mem []byte) *Region {
	if err := checkRegion(start, len(mem)); err != nil {
		panic(err)
	}
	return &Region{start: start, data: mem}
}

// Map reserves size bytes of anonymous memory and returns it as a region
// whose start is the real address of the mapping. Close releases it.
func Map(size int) (*Region, error) {
	data, cleanup, err := mmregion.Map(size)
	if err != nil {
		return nil, err
	}
	start := Addr(unsafe.Pointer(unsafe.SliceData(data)))
	if err := checkRegion(start, len(data)); err != nil {
		_ = cleanup()
		return nil, err
	}
	return &Region{start: start, data: data, cleanup: cleanup}, nil
}

func checkRegion(start Addr, size int) error {
	if start == 0 {
		return fmt.Errorf("%w: start address is zero", ErrBadRegion)
	}
	if size <= 0 {
		return fmt.Errorf("%w: size %d", ErrBadRegion, size)
	}
	if _, ok := buf.AddAddr(start, uintptr(size)); !ok {
		return fmt.Errorf("%w: 0x%x+%d wraps the address space", ErrBadRegion, start, size)
	}
	return nil
}

// Start returns the address of the first byte.
func (r *Region) Start() Addr { return r.start }

// End returns the address one past the last byte.
func (r *Region) End() Addr { return r.start + Addr(len(r.data)) }

// Size returns the number of bytes in the region.
func (r *Region) Size() uintptr { return uintptr(len(r.data)) }

// Raw returns the whole backing slice. Allocators use it to read and write
// intrusive nodes; everyone else should use Bytes.
func (r *Region) Raw() []byte { return r.data }

// Contains reports whether [addr, addr+n) lies within the region.
func (r *Region) Contains(addr Addr, n uintptr) bool {
	if addr < r.start {
		return false
	}
	end, ok := buf.AddAddr(addr, n)
	return ok && end <= r.End()
}

// Offset converts addr into an index of Raw(). It panics when addr is outside
// the region: every caller derives addr from the region itself.
func (r *Region) Offset(addr Addr) int {
	off, err := r.offset(addr, 1)
	if err != nil {
		panic(err)
	}
	return off
}

// offset checks that [addr, addr+n) lies in the region and returns the index
// of addr in the backing slice.
func (r *Region) offset(addr Addr, n uintptr) (int, error) {
	if addr < r.start || n > math.MaxInt {
		return 0, fmt.Errorf("%w: [0x%x, +%d) not in %s", ErrOutOfRange, addr, n, r)
	}
	off := int(addr - r.start)
	if _, err := buf.CheckRange(len(r.data), off, int(n)); err != nil {
		return 0, fmt.Errorf("%w: [0x%x, +%d): %w", ErrOutOfRange, addr, n, err)
	}
	return off, nil
}

// Bytes returns the n bytes at addr, the user's view of an allocation.
func (r *Region) Bytes(addr Addr, n uintptr) ([]byte, error) {
	if r.data == nil {
		return nil, ErrClosed
	}
	off, err := r.offset(addr, n)
	if err != nil {
		return nil, err
	}
	b, _ := buf.Slice(r.data, off, int(n))
	return b, nil
}

// Close releases memory obtained through Map. It is a no-op for regions made
// with NewRegion. The region must not be used afterwards.
func (r *Region) Close() error {
	if r.cleanup == nil {
		r.data = nil
		return nil
	}
	err := r.cleanup()
	r.cleanup = nil
	r.data = nil
	return err
}

// String returns a short description for logs.
func (r *Region) String() string {
	return fmt.Sprintf("[0x%x, 0x%x) %d bytes", r.start, r.End(), len(r.data))
}
