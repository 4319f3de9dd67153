package heap

import "errors"

var (
	// ErrBadRegion indicates a region with a zero start, an empty backing slice,
	// or a range that wraps around the address space.
	ErrBadRegion = errors.New("heap: bad region")

	// ErrOutOfRange indicates an address range outside the region.
	ErrOutOfRange = errors.New("heap: address out of range")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("heap: region closed")
)
