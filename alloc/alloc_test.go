package alloc

import "testing"

func TestHeap_AllocZeroed(t *testing.T) {
	var h Heap

	buf := h.AllocZeroed(64, 8)
	if len(buf) != 64 {
		t.Fatalf("len = %d, want 64", len(buf))
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}

	h.Dealloc(buf, 64, 8)
}

func TestHeap_ZeroSize(t *testing.T) {
	var h Heap
	if buf := h.AllocZeroed(0, 1); buf != nil {
		t.Errorf("AllocZeroed(0, 1) = %v, want nil", buf)
	}
}

func TestDisabled(t *testing.T) {
	var d Disabled

	if buf := d.AllocZeroed(64, 8); buf != nil {
		t.Errorf("AllocZeroed = %v, want nil", buf)
	}
	// Must tolerate a dealloc of the nil it handed out.
	d.Dealloc(nil, 64, 8)
}
