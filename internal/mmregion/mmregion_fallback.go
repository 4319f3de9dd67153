//go:build !unix && !windows

package mmregion

import "fmt"

// Map allocates the region from the Go heap when no mapping primitive is available.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmregion: invalid size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
