package bitfield

import "testing"

func TestFields(t *testing.T) {
	if got := Mask[uint32](4, 4); got != 0xf0 {
		t.Errorf("Mask: got %#x", got)
	}
	if got := Insert[uint32](9, 4, 4); got != 0x90 {
		t.Errorf("Insert: got %#x", got)
	}
	if got := Insert[uint32](0x1f, 4, 4); got != 0xf0 {
		t.Errorf("Insert truncate: got %#x", got)
	}
	if got := Extract[uint32](0xabcd, 8, 4); got != 0xb {
		t.Errorf("Extract: got %#x", got)
	}
	if got := Modify[uint32](0xffff, 0, 4, 8); got != 0xf00f {
		t.Errorf("Modify: got %#x", got)
	}
	if !Fits[uint32](15, 4) || Fits[uint32](16, 4) {
		t.Error("Fits: wrong boundary")
	}
}

func TestRoundTrip(t *testing.T) {
	var reg uint32
	for offset := uint(0); offset < 28; offset++ {
		reg = Modify(reg, 0x5, offset, 4)
		if got := Extract(reg, offset, 4); got != 0x5 {
			t.Fatalf("offset %d: got %#x", offset, got)
		}
		reg = Modify(reg, 0, offset, 4)
	}
	if reg != 0 {
		t.Errorf("leftover bits %#x", reg)
	}
}
