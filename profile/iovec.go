package profile

// IOVec is one entry in the runtime's scatter list: a logical byte range in
// the output stream. Data non-nil means the range is backed by real memory.
// Data nil means the range is virtual: ElemSize*NumElem zero bytes that must
// appear in the stream but have no backing storage.
//
// Entries are consumed strictly in order. The wire format addresses sections
// by byte offset, so reordering corrupts the output.
type IOVec struct {
	Data     []byte
	ElemSize uint64
	NumElem  uint64
	// ZeroPad records the runtime's UseZeroPadding flag. Virtual ranges are
	// always emitted as zeros here regardless of its value.
	ZeroPad bool
}

// Len returns the number of bytes this entry contributes to the stream.
func (v IOVec) Len() uint64 {
	return v.ElemSize * v.NumElem
}
