package profile

import (
	covruntime "github.com/wippyai/coverage-runtime"
	"github.com/wippyai/coverage-runtime/errors"
)

// VPDataReader is an opaque handle to the runtime's value-profiling reader.
// Runtimes hand it out from Runtime.VPDataReader and receive it back in
// WriteData; this package never looks inside. A nil handle means value
// profiling is omitted from the capture.
type VPDataReader any

// Runtime is the profiling-runtime ABI: the five entry points every
// implementation of the wire format exposes, plus the value-profiling reader
// handle. Implementations include the wazero guest binding in the engine
// package and the in-process reference runtime in profiletest.
//
// Status-returning methods follow the C convention: 0 is success.
type Runtime interface {
	// Version returns the raw wire-format version word, variant bits included.
	Version() uint64

	// ResetCounters zeroes every live counter.
	ResetCounters()

	// CheckCompatibility reports whether data can be merged into the live
	// counter table.
	CheckCompatibility(data []byte) int32

	// MergeFromBuffer folds data's counters into the live table. The fold is
	// all-or-nothing; a nonzero status leaves the table unchanged.
	MergeFromBuffer(data []byte) int32

	// WriteData streams the current profile through write. A nil vp omits
	// value-profiling data; skipNames omits the function name section.
	WriteData(write WriteFunc, vp VPDataReader, skipNames bool) int32

	// VPDataReader returns the runtime's value-profiling reader, or nil when
	// value profiling is unavailable (no data, or the allocation shim is
	// disabled).
	VPDataReader() VPDataReader
}

// Allocator provides zeroed allocations to the runtime's value-profiling
// subsystem. AllocZeroed returns nil on failure; a variant that always
// returns nil disables value profiling entirely. Dealloc must receive the
// exact size and alignment the buffer was allocated with.
type Allocator interface {
	AllocZeroed(size, align uint64) []byte
	Dealloc(buf []byte, size, align uint64)
}

// Options adjust what a capture includes.
type Options struct {
	// SkipNames omits the function name section. Useful when the names are
	// recovered from the binary at report time.
	SkipNames bool

	// DisableValueProfile omits value-profiling data even when the runtime
	// could provide it.
	DisableValueProfile bool
}

// Capture streams a complete snapshot of the current counters into sink in
// the runtime's wire format. The output should be persisted with a .profraw
// extension for llvm-profdata and friends.
//
// Sinks are not transactional: if a write fails after earlier writes
// succeeded, the sink holds a useless prefix. Callers that need atomicity
// should capture into a Buffer first.
//
// Call Reset afterwards if the program keeps running and the captured data
// will be merged back later, so counts are not reported twice.
//
// Capture is not safe for concurrent use and requires exclusive access to
// the runtime for its full duration. It panics on a wire-format version
// mismatch.
func Capture(rt Runtime, sink covruntime.Sink) error {
	return CaptureWith(rt, sink, Options{})
}

// CaptureWith is Capture with explicit Options.
func CaptureWith(rt Runtime, sink covruntime.Sink, opts Options) error {
	checkVersion(rt)

	var vp VPDataReader
	if !opts.DisableValueProfile {
		vp = rt.VPDataReader()
	}

	w := &writer{sink: sink}
	if status := rt.WriteData(w.write, vp, opts.SkipNames); status != 0 {
		if w.err != nil {
			return errors.WriteFailed(w.err)
		}
		return errors.BadStatus(errors.PhaseCapture, "WriteData", status)
	}
	debugf("capture complete: %d bytes", w.n)
	return nil
}

// Merge folds a previously captured blob back into the live counters,
// typically elementwise addition per counter slot. Call it before capturing
// when data from an earlier run should accumulate instead of being
// overwritten.
//
// An incompatible blob (different binary, different build) is reported as an
// error with kind incompatible_data and leaves the counters unchanged.
//
// Merge is not safe for concurrent use. It panics on a wire-format version
// mismatch.
func Merge(rt Runtime, blob []byte) error {
	checkVersion(rt)

	if rt.CheckCompatibility(blob) != 0 {
		return errors.Incompatible(len(blob))
	}
	if rt.MergeFromBuffer(blob) != 0 {
		return errors.Incompatible(len(blob))
	}
	debugf("merged %d bytes", len(blob))
	return nil
}

// Reset zeroes all live counters. Call it after a fork so parent and child
// do not both report the pre-fork counts, and after a Capture when execution
// continues and future counts should not include data already captured.
//
// Reset is not safe for concurrent use. It panics on a wire-format version
// mismatch.
func Reset(rt Runtime) {
	checkVersion(rt)
	rt.ResetCounters()
}
