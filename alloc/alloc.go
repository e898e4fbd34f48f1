package alloc

// Heap is the Go-heap backed allocation shim. Allocations are zeroed by
// construction; alignment is satisfied for every value the runtime requests
// because Go slice backing arrays are at least word aligned and the
// value-profiling records only need word alignment.
type Heap struct{}

func (Heap) AllocZeroed(size, align uint64) []byte {
	if size == 0 {
		return nil
	}
	return make([]byte, size)
}

func (Heap) Dealloc(buf []byte, size, align uint64) {
	// The Go heap reclaims by reachability; dropping the reference is the
	// whole contract here.
	_ = buf
}

// Disabled is the always-fail allocation shim. AllocZeroed returns nil,
// which the runtime must treat as "value profiling unavailable"; it never
// dereferences the result. Dealloc is a no-op.
type Disabled struct{}

func (Disabled) AllocZeroed(size, align uint64) []byte { return nil }

func (Disabled) Dealloc(buf []byte, size, align uint64) {}
