package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/coverage-runtime/errors"
	"github.com/wippyai/coverage-runtime/profile"
)

var _ profile.Runtime = (*Instance)(nil)

// Instance is a loaded instrumented guest. It implements profile.Runtime, so
// profile.Capture, profile.Merge and profile.Reset drive the guest's
// profiling runtime directly.
//
// Instance is not safe for concurrent use.
type Instance struct {
	runtime wazero.Runtime
	module  api.Module
	mem     *GuestMemory
	bump    *bumpAllocator

	versionFn api.Function
	resetFn   api.Function
	mergeFn   api.Function
	compatFn  api.Function
	captureFn api.Function

	// write is the sink-bound writer callback for the capture in flight.
	// Guest calls to minicov.write outside a capture fail.
	write profile.WriteFunc

	allocDisabled bool
}

func (i *Instance) bind(mod api.Module) error {
	mem := mod.Memory()
	if mem == nil {
		return errors.InvalidInput(errors.PhaseLoad, "guest module has no memory")
	}

	required := []struct {
		name string
		fn   *api.Function
	}{
		{ExportGetVersion, &i.versionFn},
		{ExportResetCounters, &i.resetFn},
		{ExportMergeFromBuffer, &i.mergeFn},
		{ExportCheckCompatibility, &i.compatFn},
		{ExportCapture, &i.captureFn},
	}
	for _, req := range required {
		f := mod.ExportedFunction(req.name)
		if f == nil {
			return errors.NotFound(req.name)
		}
		*req.fn = f
	}

	i.module = mod
	i.mem = &GuestMemory{mem: mem}
	i.bump = &bumpAllocator{mem: mem}
	return nil
}

// Run invokes an exported guest function, typically the instrumented entry
// point to exercise before capturing.
func (i *Instance) Run(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, errors.New(errors.PhaseGuest, errors.KindNotFound).
			Export(name).Detail("export not found in guest module").Build()
	}
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGuest, errors.KindBadStatus, err, "guest call failed: "+name)
	}
	return results, nil
}

// ExportNames returns the guest's exported function names, for tooling.
func (i *Instance) ExportNames() []string {
	defs := i.module.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

// Memory returns the guest's linear memory.
func (i *Instance) Memory() *GuestMemory { return i.mem }

// Close releases the instance and its wazero runtime.
func (i *Instance) Close(ctx context.Context) error {
	return i.runtime.Close(ctx)
}

// Version implements profile.Runtime. A trapped guest is unrecoverable and
// panics, same as a version mismatch.
func (i *Instance) Version() uint64 {
	results, err := i.versionFn.Call(context.Background())
	if err != nil {
		panic("covruntime: " + ExportGetVersion + " trapped: " + err.Error())
	}
	return results[0]
}

// ResetCounters implements profile.Runtime.
func (i *Instance) ResetCounters() {
	if _, err := i.resetFn.Call(context.Background()); err != nil {
		panic("covruntime: " + ExportResetCounters + " trapped: " + err.Error())
	}
}

// CheckCompatibility implements profile.Runtime by staging blob in guest
// memory and asking the guest runtime.
func (i *Instance) CheckCompatibility(blob []byte) int32 {
	return i.callWithBlob(i.compatFn, ExportCheckCompatibility, blob)
}

// MergeFromBuffer implements profile.Runtime.
func (i *Instance) MergeFromBuffer(blob []byte) int32 {
	return i.callWithBlob(i.mergeFn, ExportMergeFromBuffer, blob)
}

// callWithBlob copies blob into guest memory and invokes fn(ptr, size).
// The staging area comes from host-grown pages, never the guest's own heap.
func (i *Instance) callWithBlob(fn api.Function, name string, blob []byte) int32 {
	ctx := context.Background()

	ptr, err := i.bump.Alloc(uint32(len(blob)), 8)
	if err != nil {
		debugf("%s: staging alloc failed: %v", name, err)
		return 1
	}
	defer i.bump.Free(ptr, uint32(len(blob)), 8)

	if err := i.mem.Write(ptr, blob); err != nil {
		debugf("%s: staging write failed: %v", name, err)
		return 1
	}

	results, err := fn.Call(ctx, uint64(ptr), uint64(len(blob)))
	if err != nil {
		debugf("%s trapped: %v", name, err)
		return 1
	}
	return int32(uint32(results[0]))
}

// WriteData implements profile.Runtime. The guest's capture glue forwards
// its scatter lists to minicov.write, which lands in hostWrite below while
// this call is on the stack.
func (i *Instance) WriteData(write profile.WriteFunc, vp profile.VPDataReader, skipNames bool) int32 {
	i.write = write
	defer func() { i.write = nil }()

	var skip, enableVP uint64
	if skipNames {
		skip = 1
	}
	if vp != nil {
		enableVP = 1
	}

	results, err := i.captureFn.Call(context.Background(), skip, enableVP)
	if err != nil {
		debugf("%s trapped: %v", ExportCapture, err)
		return 1
	}
	return int32(uint32(results[0]))
}

// guestVPReader marks value profiling as available; the actual reader lives
// inside the guest and never crosses the boundary.
type guestVPReader struct{}

// VPDataReader implements profile.Runtime.
func (i *Instance) VPDataReader() profile.VPDataReader {
	if i.allocDisabled {
		return nil
	}
	return guestVPReader{}
}

// hostWrite serves minicov.write(iovs, n): decode the ProfDataIOVec array
// from guest memory and feed the capture's writer callback.
func (i *Instance) hostWrite(ctx context.Context, mod api.Module, stack []uint64) {
	iovsPtr := api.DecodeU32(stack[0])
	numIOVecs := api.DecodeU32(stack[1])

	if i.write == nil {
		debugf("minicov.write called outside a capture")
		stack[0] = 1
		return
	}

	iovs, err := decodeIOVecs(i.mem, iovsPtr, numIOVecs)
	if err != nil {
		debugf("decode iovecs: %v", err)
		stack[0] = 1
		return
	}

	stack[0] = uint64(uint32(i.write(iovs)))
}

// hostAllocZeroed serves minicov.alloc_zeroed(size, align). Disabled
// allocators report failure with a null pointer; the guest runtime then
// omits value profiling and never dereferences the result.
func (i *Instance) hostAllocZeroed(ctx context.Context, mod api.Module, stack []uint64) {
	size := api.DecodeU32(stack[0])
	align := api.DecodeU32(stack[1])

	if i.allocDisabled || size == 0 {
		stack[0] = 0
		return
	}

	ptr, err := i.bump.Alloc(size, align)
	if err != nil {
		debugf("alloc_zeroed(%d, %d): %v", size, align, err)
		stack[0] = 0
		return
	}
	stack[0] = uint64(ptr)
}

// hostDealloc serves minicov.dealloc(ptr, size, align) with the exact pair
// the allocation used.
func (i *Instance) hostDealloc(ctx context.Context, mod api.Module, stack []uint64) {
	ptr := api.DecodeU32(stack[0])
	size := api.DecodeU32(stack[1])
	align := api.DecodeU32(stack[2])
	i.bump.Free(ptr, size, align)
}
