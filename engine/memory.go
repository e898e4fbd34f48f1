package engine

import (
	"github.com/tetratelabs/wazero/api"

	covruntime "github.com/wippyai/coverage-runtime"
	"github.com/wippyai/coverage-runtime/errors"
	"github.com/wippyai/coverage-runtime/profile"
)

const pageSize = 65536

// GuestMemory wraps wazero memory to implement covruntime.Memory.
type GuestMemory struct {
	mem api.Memory
}

func (m *GuestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseHost, uint64(offset), uint64(length))
	}
	return data, nil
}

func (m *GuestMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseHost, uint64(offset), uint64(len(data)))
	}
	return nil
}

func (m *GuestMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseHost, uint64(offset), 4)
	}
	return val, nil
}

func (m *GuestMemory) ReadU64(offset uint32) (uint64, error) {
	val, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseHost, uint64(offset), 8)
	}
	return val, nil
}

func (m *GuestMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseHost, uint64(offset), 4)
	}
	return nil
}

func (m *GuestMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseHost, uint64(offset), 8)
	}
	return nil
}

func (m *GuestMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// iovecSize is the wasm32 layout of ProfDataIOVec: data u32, elm_size u32,
// num_elm u32, use_zero_padding u32.
const iovecSize = 16

// decodeIOVecs reads a ProfDataIOVec array out of guest memory. Real ranges
// come back as views into guest memory, valid until the guest runs again;
// the writer bridge consumes them before returning, which is within that
// window because the guest is suspended inside the minicov.write import.
func decodeIOVecs(mem covruntime.Memory, ptr, n uint32) ([]profile.IOVec, error) {
	iovs := make([]profile.IOVec, 0, n)
	for k := uint32(0); k < n; k++ {
		base := ptr + k*iovecSize

		dataPtr, err := mem.ReadU32(base)
		if err != nil {
			return nil, err
		}
		elemSize, err := mem.ReadU32(base + 4)
		if err != nil {
			return nil, err
		}
		numElem, err := mem.ReadU32(base + 8)
		if err != nil {
			return nil, err
		}
		zeroPad, err := mem.ReadU32(base + 12)
		if err != nil {
			return nil, err
		}

		iov := profile.IOVec{
			ElemSize: uint64(elemSize),
			NumElem:  uint64(numElem),
			ZeroPad:  zeroPad != 0,
		}
		if dataPtr != 0 {
			length := uint64(elemSize) * uint64(numElem)
			if length > 0 {
				if length > 1<<32-1 {
					return nil, errors.OutOfBounds(errors.PhaseHost, uint64(dataPtr), length)
				}
				data, err := mem.Read(dataPtr, uint32(length))
				if err != nil {
					return nil, err
				}
				iov.Data = data
			} else {
				iov.Data = []byte{}
			}
		}
		iovs = append(iovs, iov)
	}
	return iovs, nil
}

// bumpAllocator implements covruntime.Allocator over pages the host grows
// itself. Guest code never sees these pages through its own heap, so they
// are free for value-profiling buffers and blob staging. Allocations are
// zeroed because freshly grown wasm pages are zero and the region is never
// reused: Free only tracks balance.
type bumpAllocator struct {
	mem     api.Memory
	next    uint32
	end     uint32
	started bool
	live    int
}

func (b *bumpAllocator) Alloc(size, align uint32) (uint32, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseHost, "alignment must be a nonzero power of two")
	}

	if !b.started || b.mem.Size() != b.end {
		// The region starts past the current end of memory. If the guest
		// grew memory since our last allocation, the tail of the old region
		// now borders guest pages, so abandon it and start a fresh one.
		b.next = b.mem.Size()
		b.end = b.next
		b.started = true
	}

	ptr := (b.next + align - 1) &^ (align - 1)
	if ptr < b.next {
		return 0, errors.AllocationFailed(errors.PhaseHost, uint64(size), uint64(align))
	}

	if uint64(ptr)+uint64(size) > uint64(b.end) {
		needed := uint64(ptr) + uint64(size) - uint64(b.end)
		pages := uint32((needed + pageSize - 1) / pageSize)
		if _, ok := b.mem.Grow(pages); !ok {
			return 0, errors.AllocationFailed(errors.PhaseHost, uint64(size), uint64(align))
		}
		b.end = b.mem.Size()
	}

	b.next = ptr + size
	b.live++
	return ptr, nil
}

func (b *bumpAllocator) Free(ptr, size, align uint32) {
	// No reuse; the region is reclaimed when the instance closes.
	if b.live > 0 {
		b.live--
	}
}
