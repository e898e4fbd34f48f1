package profile

import (
	covruntime "github.com/wippyai/coverage-runtime"
)

// WriteFunc is the writer-callback shape of the runtime's write protocol.
// During a capture the runtime invokes it zero or more times, each time with
// an ordered scatter list. It returns 0 on success and nonzero on failure,
// at which point the runtime stops writing.
type WriteFunc func(iovs []IOVec) int32

// zeroChunk is the scratch used to materialize virtual ranges without
// allocating. Its size only affects how many Sink calls a large padding run
// takes, not correctness.
var zeroChunk [64]byte

// writer binds a Sink to the write protocol and remembers the first Sink
// error so Capture can surface it.
type writer struct {
	sink covruntime.Sink
	err  error
	n    uint64
}

// write forwards one scatter list to the sink. Ranges go out strictly in
// list order: real ranges verbatim in a single call, virtual ranges as
// zero-filled chunks. The first sink error aborts the remaining entries.
func (w *writer) write(iovs []IOVec) int32 {
	for i := range iovs {
		iov := &iovs[i]
		n := iov.Len()
		if n == 0 {
			// Legal no-op entry. The sink never sees an empty chunk.
			continue
		}
		if iov.Data == nil {
			remaining := n
			for remaining > 0 {
				chunk := uint64(len(zeroChunk))
				if remaining < chunk {
					chunk = remaining
				}
				if err := w.sink.Write(zeroChunk[:chunk]); err != nil {
					w.err = err
					return 1
				}
				remaining -= chunk
			}
		} else {
			if err := w.sink.Write(iov.Data[:n]); err != nil {
				w.err = err
				return 1
			}
		}
		w.n += n
	}
	return 0
}
