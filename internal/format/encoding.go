package format

import "encoding/binary"

// Binary encoding utilities for the words stored inside free blocks.
//
// Free memory is described by nodes written into the memory itself. Nodes are
// encoded little-endian regardless of the host so that a dump of an arena reads
// the same everywhere.
//
// Implementation: Uses encoding/binary.LittleEndian, which the compiler inlines
// into single loads and stores.

// PutWord writes a 64-bit word to b at off.
func PutWord(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], v)
}

// ReadWord reads a 64-bit word from b at off.
func ReadWord(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+WordSize])
}

// PutLink stores an address-valued link at off.
func PutLink(b []byte, off int, addr uintptr) {
	PutWord(b, off, uint64(addr))
}

// ReadLink reads an address-valued link from off.
func ReadLink(b []byte, off int) uintptr {
	return uintptr(ReadWord(b, off))
}
