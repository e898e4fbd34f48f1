// Package alloc provides the allocation shim variants used by the profiling
// runtime's value-profiling subsystem.
//
// Value profiling is the only part of a capture that needs dynamic
// allocation. The runtime requests zeroed memory through the
// profile.Allocator it was wired with; which variant it gets decides at
// configuration time whether value profiling exists at all:
//
//   - Heap routes requests to the Go heap.
//   - Disabled always fails, so the runtime omits value-profiling data and
//     the rest of the capture works without a heap.
//
// Deallocation must use the exact size/alignment pair the buffer was
// allocated with; the variants here pass both through untouched so a
// backing allocator with a strict contract (such as guest-side allocators
// in the engine package) stays within it.
package alloc
