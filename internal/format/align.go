package format

// Alignment utilities shared by every allocation strategy.
// All alignments are powers of two; callers validate that before reaching here.

// AlignUp returns the smallest value >= addr that is a multiple of align.
// align must be a power of two; the result is undefined otherwise.
//
// Example:
//
//	AlignUp(0x1001, 8)  = 0x1008
//	AlignUp(0x1008, 8)  = 0x1008
//	AlignUp(0x1001, 16) = 0x1010
func AlignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}

// IsAligned reports whether addr is a multiple of align.
func IsAligned(addr, align uintptr) bool {
	return addr&(align-1) == 0
}

// IsPowerOfTwo reports whether x is a nonzero power of two.
func IsPowerOfTwo(x uintptr) bool {
	return x != 0 && x&(x-1) == 0
}
