package dma

import (
	"bytes"
	"testing"
)

// endMarker returns the byte following the program's write position, which
// must hold DMAEND at all times.
func endMarker(p *Program) byte {
	return p.buf[: len(p.buf)+1 : cap(p.buf)][len(p.buf)]
}

func TestEndMarkerInvariant(t *testing.T) {
	p := NewProgram(64)
	if endMarker(p) != opEnd {
		t.Fatal("fresh program not sealed")
	}
	emits := []func() error{
		func() error { return p.Mov(SAR, 0x1000) },
		func() error { return p.Load(Always) },
		func() error { return p.Loop(4) },
		func() error { return p.Store(Always) },
		func() error { return p.LoopEnd(Always) },
		func() error { return p.SendEvent(0) },
	}
	for i, emit := range emits {
		check(t, emit())
		if endMarker(p) != opEnd {
			t.Fatalf("program not sealed after append %d", i)
		}
	}
	p.Reset()
	if p.Len() != 0 || endMarker(p) != opEnd {
		t.Fatal("program not sealed after reset")
	}
}

func TestNoSpace(t *testing.T) {
	p := NewProgram(4)
	if p.Cap() != 4 {
		t.Fatalf("got cap %d, want 4", p.Cap())
	}
	checkErr(t, p.Mov(SAR, 0), ErrNoSpace) // 6 bytes into 4
	if p.Len() != 0 {
		t.Fatal("failed append modified program")
	}
	for i := 0; i < 4; i++ {
		check(t, p.Nop())
	}
	checkErr(t, p.Nop(), ErrNoSpace)
	if endMarker(p) != opEnd {
		t.Fatal("program not sealed when full")
	}
}

func TestWellFormed(t *testing.T) {
	p := NewProgram(16)
	if p.wellFormed() {
		t.Error("empty program well formed")
	}
	check(t, p.Load(Always))
	if p.wellFormed() {
		t.Error("unterminated program well formed")
	}
	check(t, p.End())
	if !p.wellFormed() {
		t.Error("terminated program not well formed")
	}

	p.Reset()
	check(t, p.Loop(2))
	check(t, p.Load(Always))
	check(t, p.End())
	if p.wellFormed() {
		t.Error("program with open loop well formed")
	}
}

func TestLoopInsert(t *testing.T) {
	p := NewProgram(32)
	check(t, p.Load(Always))
	check(t, p.Store(Always))
	// Wrap the already emitted body retroactively.
	check(t, p.LoopAt(0, 16))
	check(t, p.LoopEnd(Always))

	want := []byte{
		0x20, 0x0f, // DMALP   LC0, 16
		0x04,       // DMALD
		0x08,       // DMAST
		0x38, 0x02, // DMALPEND LC0, -2
	}
	if !bytes.Equal(p.Bytes(), want) {
		t.Errorf("got % x, want % x", p.Bytes(), want)
	}
}

func TestLoopInsertNesting(t *testing.T) {
	p := NewProgram(32)
	check(t, p.Nop())
	check(t, p.Nop())
	check(t, p.LoopAt(1, 2)) // body starts at offset 3
	check(t, p.Nop())
	// Inserting before the open loop's body would interleave the loops.
	checkErr(t, p.LoopAt(0, 2), ErrOutOfRange)
	checkErr(t, p.LoopAt(-1, 2), ErrOutOfRange)
	checkErr(t, p.LoopAt(p.Len()+1, 2), ErrOutOfRange)
	check(t, p.LoopEnd(Always))
	if p.counters != 0 {
		t.Error("counter leaked")
	}
}

func TestCounterClaim(t *testing.T) {
	p := NewProgram(64)
	check(t, p.Loop(2))
	check(t, p.Loop(2))
	if p.counters != 0b11 {
		t.Fatalf("got counter mask %#b", p.counters)
	}
	check(t, p.LoopEnd(Always))
	check(t, p.LoopEnd(Always))
	if p.counters != 0 {
		t.Fatalf("got counter mask %#b", p.counters)
	}
	// Counters are reusable after release.
	check(t, p.Loop(2))
	check(t, p.LoopEnd(Always))
}
