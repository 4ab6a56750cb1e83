package dma

import (
	"github.com/de1soc/hps/debug"
)

// Hardware limits of the DMA-330 execution engine.
const (
	NumChannels = 8  // independent channel threads
	NumEvents   = 32 // event/interrupt lines
	NumPeriphs  = 32 // peripheral request interfaces

	// AbortEvent is reserved by the driver to signal aborted transfers.
	// [Program.SendEvent] refuses it, channels signal completion with
	// their own channel number.
	AbortEvent = 8

	maxBurstLen = 16  // beats per burst, encoded as n-1 in 4 bits
	maxLoopIter = 256 // iterations per hardware loop counter
	maxLoopJump = 255 // relative backwards jump of a loop end
	numCounters = 2   // hardware loop counters per channel
)

// defaultProgramSize is the working size of programs built by the
// synthesizer. It bounds the transfer length one [Chunk] can describe,
// larger transfers must be split into multiple chunks.
const defaultProgramSize = 256

// A Program is an encoded sequence of DMA-330 machine instructions, executed
// by a single channel thread. The zero value is not usable, allocate with
// [NewProgram].
//
// The byte following the last encoded instruction always holds DMAEND, so a
// partially built program is safe to hand to the engine at any time: it will
// terminate immediately.
type Program struct {
	buf       []byte // capacity fixed at allocation
	loops     []loopFrame
	counters  uint8 // bitmask of reserved loop counters
	nonsecure bool
}

type loopFrame struct {
	counter int // -1 once released
	body    int // offset of the first body instruction
}

// NewProgram allocates a program buffer with space for size instruction
// bytes.
func NewProgram(size int) *Program {
	debug.Assert(size > 0, "dma: program size")
	p := &Program{buf: make([]byte, 0, size+1)}
	p.seal()
	return p
}

// SetNonSecure marks the program for execution in the non-secure state.
// Must match the security state of the thread it is started on, otherwise
// the engine aborts with a fault.
func (p *Program) SetNonSecure(ns bool) { p.nonsecure = ns }

// Len returns the current length of the encoded program in bytes.
func (p *Program) Len() int { return len(p.buf) }

// Cap returns the program's fixed capacity in bytes.
func (p *Program) Cap() int { return cap(p.buf) - 1 }

// Bytes returns the encoded program. The slice aliases the program's buffer
// and is invalidated by further appends.
func (p *Program) Bytes() []byte { return p.buf }

// Reset discards all instructions but keeps the buffer.
func (p *Program) Reset() {
	p.buf = p.buf[:0]
	p.loops = p.loops[:0]
	p.counters = 0
	p.seal()
}

// seal maintains the invariant that the byte after the write position holds
// an END marker.
func (p *Program) seal() {
	p.buf[:len(p.buf)+1][len(p.buf)] = opEnd
}

// grow reserves n instruction bytes and returns their slice, or ErrNoSpace
// if they don't fit.
func (p *Program) grow(n int) ([]byte, error) {
	if len(p.buf)+n > p.Cap() {
		return nil, ErrNoSpace
	}
	p.buf = p.buf[:len(p.buf)+n]
	p.seal()
	return p.buf[len(p.buf)-n:], nil
}

// insert shifts everything from offset off onwards by n bytes and returns
// the freed slice.
func (p *Program) insert(off, n int) ([]byte, error) {
	if _, err := p.grow(n); err != nil {
		return nil, err
	}
	copy(p.buf[off+n:], p.buf[off:])
	return p.buf[off : off+n], nil
}

// wellFormed reports whether the program can be handed to a channel thread:
// non-empty, terminated by an END marker and with no loops left open.
func (p *Program) wellFormed() bool {
	return len(p.buf) > 0 && p.buf[len(p.buf)-1] == opEnd &&
		len(p.loops) == 0 && p.counters == 0
}

// claimCounter reserves the lowest free hardware loop counter.
func (p *Program) claimCounter() (int, error) {
	for i := 0; i < numCounters; i++ {
		if p.counters&(1<<i) == 0 {
			p.counters |= 1 << i
			return i, nil
		}
	}
	return 0, ErrInUse
}

func (p *Program) releaseCounter(i int) {
	debug.Assert(p.counters&(1<<i) != 0, "dma: counter not claimed")
	p.counters &^= 1 << i
}
