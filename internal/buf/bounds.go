// Package buf contains overflow-checked arithmetic for addresses and byte ranges.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// AddAddr adds n bytes to addr, returning ok = false when the result would wrap
// around the address space.
func AddAddr(addr, n uintptr) (uintptr, bool) {
	end := addr + n
	if end < addr {
		return 0, false
	}
	return end, true
}

// CheckRange validates that n bytes starting at off fit in a buffer of bufLen
// bytes. Returns the end offset if valid, or an error describing the specific
// failure (overflow or out of bounds).
//
//	end, err := buf.CheckRange(len(data), off, n)
//	if err != nil {
//	    return fmt.Errorf("node: %w", err)
//	}
func CheckRange(bufLen, off, n int) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset: %d", off)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative length: %d", n)
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", off, n)
	}
	if end > bufLen {
		return 0, fmt.Errorf("bounds: end=%d > len=%d", end, bufLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n], capped at its own length, if it fits
// within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}
