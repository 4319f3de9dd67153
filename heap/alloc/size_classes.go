package alloc

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// SizeClassConfig defines the block sizes of a FixedBlockAllocator.
// Different configurations trade internal fragmentation against the share of
// requests that fall through to the fallback allocator.
type SizeClassConfig struct {
	// Name for this configuration (for benchmarking and CLI output)
	Name string

	// BlockSizes are the class sizes, ascending powers of two. The first must
	// be able to hold a class node (8 bytes). Each class block is also aligned
	// to its own size, so BlockSizes double as the supported alignments.
	BlockSizes []uintptr
}

// Predefined configurations.
var (
	// ConfigDefault: nine classes from 8 bytes to 2 KiB.
	ConfigDefault = SizeClassConfig{
		Name:       "Default",
		BlockSizes: []uintptr{8, 16, 32, 64, 128, 256, 512, 1024, 2048},
	}

	// ConfigSmall: stops at 256 bytes; anything larger goes to the fallback.
	// Keeps small-heap footprints tight.
	ConfigSmall = SizeClassConfig{
		Name:       "Small",
		BlockSizes: []uintptr{8, 16, 32, 64, 128, 256},
	}

	// ConfigPage: extends the default table up to a 4 KiB page.
	ConfigPage = SizeClassConfig{
		Name:       "Page",
		BlockSizes: []uintptr{8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096},
	}

	// DefaultSizeClasses is used when no configuration is given.
	DefaultSizeClasses = ConfigDefault
)

// Validate checks that the block sizes are usable.
func (c SizeClassConfig) Validate() error {
	if len(c.BlockSizes) == 0 {
		return fmt.Errorf("%w: no block sizes", ErrBadConfig)
	}
	for i, size := range c.BlockSizes {
		if !format.IsPowerOfTwo(size) {
			return fmt.Errorf("%w: block size %d is not a power of two", ErrBadConfig, size)
		}
		if i == 0 && size < blockNodeSize {
			return fmt.Errorf("%w: smallest block size %d cannot hold a %d-byte node", ErrBadConfig, size, blockNodeSize)
		}
		if i > 0 && size <= c.BlockSizes[i-1] {
			return fmt.Errorf("%w: block sizes not strictly ascending at %d", ErrBadConfig, size)
		}
	}
	return nil
}

// sizeClassTable holds the immutable class sizes.
type sizeClassTable struct {
	name  string
	sizes []uintptr
}

// newSizeClassTable validates config and copies its sizes.
func newSizeClassTable(config SizeClassConfig) (*sizeClassTable, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	sizes := make([]uintptr, len(config.BlockSizes))
	copy(sizes, config.BlockSizes)
	return &sizeClassTable{name: config.Name, sizes: sizes}, nil
}

// listIndex returns the smallest class whose size is >= max(l.Size, l.Align),
// or false when the request is larger than every class.
func (t *sizeClassTable) listIndex(l Layout) (int, bool) {
	need := max(l.Size, l.Align)

	// Binary search for the first size that fits
	lo, hi := 0, len(t.sizes)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if need <= t.sizes[mid] {
			if mid == 0 || need > t.sizes[mid-1] {
				return mid, true
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}
	return 0, false
}

// blockSize returns the size of class i.
func (t *sizeClassTable) blockSize(i int) uintptr { return t.sizes[i] }

// NumClasses returns the number of size classes.
func (t *sizeClassTable) NumClasses() int { return len(t.sizes) }

// String returns a human-readable description of the size class table.
func (t *sizeClassTable) String() string {
	return t.name
}
