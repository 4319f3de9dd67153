// Package mmregion provides platform-specific helpers for reserving anonymous
// memory that backs an allocator arena.
//
// On unix the region comes from an anonymous private mmap, on Windows from
// VirtualAlloc. Either way the bytes live outside the Go heap, have a stable
// address for their whole lifetime, and are released only by the returned
// cleanup function.
package mmregion
