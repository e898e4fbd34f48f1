package covruntime

import "io"

// Sink is a destination for captured profile bytes.
//
// A capture delivers its output as many ordered Write calls; implementations
// must treat the calls as one logical concatenation. Any error aborts the
// capture that issued the write.
type Sink interface {
	Write(p []byte) error
}

// Buffer is a growable in-memory Sink. The zero value is ready to use.
type Buffer struct {
	buf []byte
}

func (b *Buffer) Write(p []byte) error {
	b.buf = append(b.buf, p...)
	return nil
}

// Bytes returns the accumulated bytes. The slice is valid until the next
// Write or Reset.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes accumulated so far.
func (b *Buffer) Len() int { return len(b.buf) }

// Reset discards the accumulated bytes but keeps the underlying storage.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// WriterSink adapts an io.Writer to the Sink interface. A short write is
// reported as an error.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(p []byte) error {
	n, err := s.W.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}

// Memory represents WASM linear memory
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of WASM linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory in WASM linear memory
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
