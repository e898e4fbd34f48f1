// Package profiletest provides an in-process profiling runtime for tests.
//
// Runtime implements profile.Runtime with a real counter table and a small
// self-describing wire layout: a header, per-function records, the counter
// section, an optional name section followed by virtual zero padding to
// 8-byte alignment, and an optional value-profiling section that is only
// emitted when the allocation shim yields memory. The layout is owned
// entirely by this package; the code under test treats it as opaque, exactly
// as it treats the real runtime's format.
package profiletest

import (
	"encoding/binary"

	"github.com/wippyai/coverage-runtime/profile"
)

var _ profile.Runtime = (*Runtime)(nil)

// Magic identifies blobs produced by this runtime.
const Magic uint64 = 0xff6c70726f667281

const headerWords = 4 // magic, version, numFuncs, numCounters

// Func is one instrumented function: a name, a structural hash and its
// counter slots.
type Func struct {
	Name     string
	Hash     uint64
	Counters []uint64
}

// Runtime is an in-process profiling runtime. The zero value is unusable;
// construct with New.
type Runtime struct {
	version   uint64
	funcs     []Func
	alloc     profile.Allocator
	vpData    []byte
	failWrite bool
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFuncs sets the instrumented function table. Counter slices are copied.
func WithFuncs(funcs ...Func) Option {
	return func(r *Runtime) {
		r.funcs = make([]Func, len(funcs))
		for i, f := range funcs {
			c := make([]uint64, len(f.Counters))
			copy(c, f.Counters)
			r.funcs[i] = Func{Name: f.Name, Hash: f.Hash, Counters: c}
		}
	}
}

// WithVersion overrides the version word the runtime reports and embeds in
// blobs. Variant bits survive masking, so WithVersion(profile.RawVersion |
// 1<<56) still passes the gate.
func WithVersion(v uint64) Option {
	return func(r *Runtime) { r.version = v }
}

// WithAllocator wires an allocation shim, enabling value profiling when
// value data is present.
func WithAllocator(a profile.Allocator) Option {
	return func(r *Runtime) { r.alloc = a }
}

// WithValueData sets the raw value-profiling payload the runtime emits when
// its allocation shim yields memory.
func WithValueData(data []byte) Option {
	return func(r *Runtime) { r.vpData = append([]byte(nil), data...) }
}

// WithWriteFailure makes WriteData fail with a nonzero status before
// invoking the writer callback, simulating an internal runtime failure.
func WithWriteFailure() Option {
	return func(r *Runtime) { r.failWrite = true }
}

func New(opts ...Option) *Runtime {
	r := &Runtime{version: profile.RawVersion}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Increment bumps counter slot idx of the named function, standing in for
// instrumented code executing.
func (r *Runtime) Increment(name string, idx int) {
	for i := range r.funcs {
		if r.funcs[i].Name == name {
			r.funcs[i].Counters[idx]++
			return
		}
	}
	panic("profiletest: unknown function " + name)
}

// Counters returns a copy of the named function's counter slots.
func (r *Runtime) Counters(name string) []uint64 {
	for i := range r.funcs {
		if r.funcs[i].Name == name {
			return append([]uint64(nil), r.funcs[i].Counters...)
		}
	}
	panic("profiletest: unknown function " + name)
}

func (r *Runtime) numCounters() uint64 {
	var n uint64
	for i := range r.funcs {
		n += uint64(len(r.funcs[i].Counters))
	}
	return n
}

func (r *Runtime) Version() uint64 { return r.version }

func (r *Runtime) ResetCounters() {
	for i := range r.funcs {
		for j := range r.funcs[i].Counters {
			r.funcs[i].Counters[j] = 0
		}
	}
}

type vpReader struct{}

func (r *Runtime) VPDataReader() profile.VPDataReader {
	if len(r.vpData) == 0 || r.alloc == nil {
		return nil
	}
	return vpReader{}
}

// WriteData streams the profile through write in several callback
// invocations, mirroring how the real runtime writes section by section.
func (r *Runtime) WriteData(write profile.WriteFunc, vp profile.VPDataReader, skipNames bool) int32 {
	if r.failWrite {
		return 1
	}

	header := make([]byte, headerWords*8)
	binary.LittleEndian.PutUint64(header[0:], Magic)
	binary.LittleEndian.PutUint64(header[8:], r.version)
	binary.LittleEndian.PutUint64(header[16:], uint64(len(r.funcs)))
	binary.LittleEndian.PutUint64(header[24:], r.numCounters())

	data := make([]byte, len(r.funcs)*16)
	for i, f := range r.funcs {
		binary.LittleEndian.PutUint64(data[i*16:], f.Hash)
		binary.LittleEndian.PutUint64(data[i*16+8:], uint64(len(f.Counters)))
	}

	if status := write([]profile.IOVec{
		{Data: header, ElemSize: 1, NumElem: uint64(len(header))},
		{Data: data, ElemSize: 1, NumElem: uint64(len(data))},
	}); status != 0 {
		return status
	}

	counters := make([]byte, r.numCounters()*8)
	off := 0
	for _, f := range r.funcs {
		for _, c := range f.Counters {
			binary.LittleEndian.PutUint64(counters[off:], c)
			off += 8
		}
	}
	if status := write([]profile.IOVec{
		{Data: counters, ElemSize: 8, NumElem: r.numCounters()},
	}); status != 0 {
		return status
	}

	if !skipNames {
		var names []byte
		for i, f := range r.funcs {
			if i > 0 {
				names = append(names, 1)
			}
			names = append(names, f.Name...)
		}
		pad := (8 - uint64(len(names))%8) % 8
		// The padding entry is virtual: no backing memory, the writer must
		// materialize the zeros itself.
		if status := write([]profile.IOVec{
			{Data: names, ElemSize: 1, NumElem: uint64(len(names))},
			{Data: nil, ElemSize: 1, NumElem: pad, ZeroPad: true},
		}); status != 0 {
			return status
		}
	}

	if vp != nil {
		size := uint64(len(r.vpData))
		buf := r.alloc.AllocZeroed(size, 8)
		if buf != nil {
			copy(buf, r.vpData)
			status := write([]profile.IOVec{
				{Data: buf, ElemSize: 1, NumElem: size},
			})
			r.alloc.Dealloc(buf, size, 8)
			if status != 0 {
				return status
			}
		}
		// A nil buffer means the shim is disabled or exhausted; the value
		// section is simply omitted.
	}

	return 0
}

// CheckCompatibility validates blob's header and function records against
// the live table. Name and value sections are not consulted; compatibility
// is a structural property of the counter layout.
func (r *Runtime) CheckCompatibility(blob []byte) int32 {
	if _, ok := r.countersIn(blob); !ok {
		return 1
	}
	return 0
}

// MergeFromBuffer folds blob's counters into the live table elementwise.
// Incompatible blobs leave the table untouched.
func (r *Runtime) MergeFromBuffer(blob []byte) int32 {
	counters, ok := r.countersIn(blob)
	if !ok {
		return 1
	}
	off := 0
	for i := range r.funcs {
		for j := range r.funcs[i].Counters {
			r.funcs[i].Counters[j] += binary.LittleEndian.Uint64(counters[off:])
			off += 8
		}
	}
	return 0
}

// countersIn locates blob's counter section after validating everything in
// front of it.
func (r *Runtime) countersIn(blob []byte) ([]byte, bool) {
	headerLen := headerWords * 8
	dataLen := len(r.funcs) * 16
	counterLen := int(r.numCounters()) * 8
	if len(blob) < headerLen+dataLen+counterLen {
		return nil, false
	}
	if binary.LittleEndian.Uint64(blob[0:]) != Magic {
		return nil, false
	}
	if profile.MaskedVersion(binary.LittleEndian.Uint64(blob[8:])) != profile.MaskedVersion(r.version) {
		return nil, false
	}
	if binary.LittleEndian.Uint64(blob[16:]) != uint64(len(r.funcs)) {
		return nil, false
	}
	if binary.LittleEndian.Uint64(blob[24:]) != r.numCounters() {
		return nil, false
	}
	for i, f := range r.funcs {
		rec := blob[headerLen+i*16:]
		if binary.LittleEndian.Uint64(rec) != f.Hash {
			return nil, false
		}
		if binary.LittleEndian.Uint64(rec[8:]) != uint64(len(f.Counters)) {
			return nil, false
		}
	}
	return blob[headerLen+dataLen:], true
}
