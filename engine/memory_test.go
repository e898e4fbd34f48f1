package engine

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/tetratelabs/wazero/api"
)

// fakeLinearMemory implements the parts of api.Memory the engine touches.
type fakeLinearMemory struct {
	api.Memory
	buf      []byte
	maxPages uint32
}

func (m *fakeLinearMemory) Size() uint32 { return uint32(len(m.buf)) }

func (m *fakeLinearMemory) Grow(delta uint32) (uint32, bool) {
	prev := uint32(len(m.buf)) / pageSize
	if m.maxPages != 0 && prev+delta > m.maxPages {
		return 0, false
	}
	m.buf = append(m.buf, make([]byte, delta*pageSize)...)
	return prev, true
}

func (m *fakeLinearMemory) Read(off, n uint32) ([]byte, bool) {
	if uint64(off)+uint64(n) > uint64(len(m.buf)) {
		return nil, false
	}
	return m.buf[off : off+n : off+n], true
}

func (m *fakeLinearMemory) Write(off uint32, p []byte) bool {
	if uint64(off)+uint64(len(p)) > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[off:], p)
	return true
}

func (m *fakeLinearMemory) ReadUint32Le(off uint32) (uint32, bool) {
	p, ok := m.Read(off, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(p), true
}

func (m *fakeLinearMemory) ReadUint64Le(off uint32) (uint64, bool) {
	p, ok := m.Read(off, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(p), true
}

func (m *fakeLinearMemory) WriteUint32Le(off uint32, v uint32) bool {
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], v)
	return m.Write(off, p[:])
}

func (m *fakeLinearMemory) WriteUint64Le(off uint32, v uint64) bool {
	var p [8]byte
	binary.LittleEndian.PutUint64(p[:], v)
	return m.Write(off, p[:])
}

func newFakeMemory(pages uint32) *fakeLinearMemory {
	return &fakeLinearMemory{buf: make([]byte, pages*pageSize)}
}

// putIOVec writes one wasm32 ProfDataIOVec struct at off.
func putIOVec(m *fakeLinearMemory, off, dataPtr, elemSize, numElem, zeroPad uint32) {
	m.WriteUint32Le(off, dataPtr)
	m.WriteUint32Le(off+4, elemSize)
	m.WriteUint32Le(off+8, numElem)
	m.WriteUint32Le(off+12, zeroPad)
}

func TestDecodeIOVecs(t *testing.T) {
	fake := newFakeMemory(1)
	mem := &GuestMemory{mem: fake}

	payload := []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	fake.Write(512, payload)

	const table = 64
	putIOVec(fake, table, 512, 2, 3, 0)  // real range
	putIOVec(fake, table+16, 0, 1, 9, 1) // virtual padding
	putIOVec(fake, table+32, 512, 4, 0, 0)

	iovs, err := decodeIOVecs(mem, table, 3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(iovs) != 3 {
		t.Fatalf("decoded %d iovecs, want 3", len(iovs))
	}

	if !bytes.Equal(iovs[0].Data, payload) {
		t.Errorf("iovec 0 data = %v, want %v", iovs[0].Data, payload)
	}
	if iovs[0].Len() != 6 {
		t.Errorf("iovec 0 len = %d, want 6", iovs[0].Len())
	}

	if iovs[1].Data != nil {
		t.Errorf("iovec 1 data = %v, want nil (virtual)", iovs[1].Data)
	}
	if iovs[1].Len() != 9 || !iovs[1].ZeroPad {
		t.Errorf("iovec 1 = %+v, want 9 zero-padded bytes", iovs[1])
	}

	if iovs[2].Data == nil || iovs[2].Len() != 0 {
		t.Errorf("iovec 2 = %+v, want zero-length real range", iovs[2])
	}
}

func TestDecodeIOVecs_OutOfBounds(t *testing.T) {
	fake := newFakeMemory(1)
	mem := &GuestMemory{mem: fake}

	putIOVec(fake, 0, pageSize-2, 1, 8, 0) // range runs past end of memory
	if _, err := decodeIOVecs(mem, 0, 1); err == nil {
		t.Error("decode of out-of-bounds range succeeded")
	}

	// iovec table itself out of bounds
	if _, err := decodeIOVecs(mem, pageSize-4, 1); err == nil {
		t.Error("decode of out-of-bounds table succeeded")
	}
}

func TestBumpAllocator(t *testing.T) {
	fake := newFakeMemory(1)
	b := &bumpAllocator{mem: fake}

	ptr, err := b.Alloc(100, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	if ptr%8 != 0 {
		t.Errorf("ptr %d not 8-aligned", ptr)
	}
	if ptr < pageSize {
		t.Errorf("ptr %d inside the guest's original page", ptr)
	}

	data, ok := fake.Read(ptr, 100)
	if !ok {
		t.Fatal("allocation not backed by memory")
	}
	for i, v := range data {
		if v != 0 {
			t.Fatalf("byte %d = %d, want 0", i, v)
		}
	}

	ptr2, err := b.Alloc(16, 16)
	if err != nil {
		t.Fatalf("second alloc: %v", err)
	}
	if ptr2%16 != 0 {
		t.Errorf("ptr2 %d not 16-aligned", ptr2)
	}
	if ptr2 < ptr+100 {
		t.Errorf("ptr2 %d overlaps previous allocation ending at %d", ptr2, ptr+100)
	}

	b.Free(ptr, 100, 8)
	b.Free(ptr2, 16, 16)
}

func TestBumpAllocator_BadAlign(t *testing.T) {
	b := &bumpAllocator{mem: newFakeMemory(1)}
	for _, align := range []uint32{0, 3, 12} {
		if _, err := b.Alloc(8, align); err == nil {
			t.Errorf("alloc with align %d succeeded", align)
		}
	}
}

func TestBumpAllocator_GrowFailure(t *testing.T) {
	fake := newFakeMemory(1)
	fake.maxPages = 1
	b := &bumpAllocator{mem: fake}

	if _, err := b.Alloc(pageSize*2, 8); err == nil {
		t.Error("alloc beyond the memory limit succeeded")
	}
}

func TestBumpAllocator_GuestGrowRestartsRegion(t *testing.T) {
	fake := newFakeMemory(1)
	b := &bumpAllocator{mem: fake}

	ptr, err := b.Alloc(8, 8)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}

	// Guest grows memory behind our back; the next allocation must land
	// past the guest's new pages, not in the abandoned tail.
	fake.Grow(2)
	guestEnd := fake.Size()

	ptr2, err := b.Alloc(8, 8)
	if err != nil {
		t.Fatalf("alloc after guest grow: %v", err)
	}
	if ptr2 < guestEnd {
		t.Errorf("ptr2 %d inside guest-grown pages (end %d)", ptr2, guestEnd)
	}
	_ = ptr
}
