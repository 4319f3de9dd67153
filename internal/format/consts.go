// Package format holds the low-level layout rules for data the allocators keep
// inside the arena: alignment arithmetic and the little-endian word codec used
// by intrusive free-list nodes. It is deliberately free of allocator policy so
// that every strategy shares one definition of "aligned" and one node encoding.
package format

const (
	// WordSize is the width of every field stored inside a free block.
	WordSize = 8

	// NilLink is the link value terminating an intrusive list. Address 0 is
	// never part of a region, so it cannot collide with a real node.
	NilLink = 0
)
