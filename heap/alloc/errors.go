package alloc

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates that no free region can satisfy the request.
	// It is the only failure Allocate reports; the caller decides what to do.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrBadLayout indicates an alignment that is not a power of two, or a size
	// that overflows when rounded up to its alignment.
	ErrBadLayout = errors.New("alloc: bad layout")

	// ErrBadConfig indicates an invalid size-class table or strategy name.
	ErrBadConfig = errors.New("alloc: bad config")

	// ErrCorrupt indicates free-list bookkeeping that violates its invariants.
	ErrCorrupt = errors.New("alloc: corrupt free list")

	// ErrPrecondition is wrapped by the panic value of every detected contract
	// violation: double init, deallocating more than was allocated, mismatched
	// layouts, or free blocks too small to hold a node.
	ErrPrecondition = errors.New("alloc: precondition violated")
)

// precondition aborts the current operation. Continuing after a broken
// caller contract would silently corrupt the arena, so this is a panic and
// never an error return.
func precondition(format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{ErrPrecondition}, args...)...))
}
