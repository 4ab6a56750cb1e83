package dma

import "encoding/binary"

// DMA-330 instruction set. Each opcode is listed with its encoded length.
// The encodings are consumed by real silicon and must match the TRM bit for
// bit.
const (
	opEnd    = 0x00 // DMAEND       1 byte
	opKill   = 0x01 // DMAKILL      1 byte
	opLd     = 0x04 // DMALD[S|B]   1 byte, |bs<<1|x
	opSt     = 0x08 // DMAST[S|B]   1 byte, |bs<<1|x
	opStz    = 0x0c // DMASTZ       1 byte
	opRmb    = 0x12 // DMARMB       1 byte
	opWmb    = 0x13 // DMAWMB       1 byte
	opNop    = 0x18 // DMANOP       1 byte
	opLp     = 0x20 // DMALP        2 bytes, |lc<<1
	opLdp    = 0x25 // DMALDP<S|B>  2 bytes, |bs<<1
	opLpEnd  = 0x28 // DMALPEND     2 bytes, |nf<<4|lc<<2|bs<<1|x
	opStp    = 0x29 // DMASTP<S|B>  2 bytes, |bs<<1
	opWfp    = 0x30 // DMAWFP       2 bytes, |bs<<1|p
	opSev    = 0x34 // DMASEV       2 bytes
	opFlushp = 0x35 // DMAFLUSHP    2 bytes
	opWfe    = 0x36 // DMAWFE       2 bytes
	opAddh   = 0x54 // DMAADDH      3 bytes, |ra<<1
	opAdnh   = 0x5c // DMAADNH      3 bytes, |ra<<1
	opGo     = 0xa0 // DMAGO        6 bytes, |ns<<1
	opMov    = 0xbc // DMAMOV       6 bytes

	opLpEndNF = 1 << 4 // loop started by DMALP, not DMALPFE
)

// Reg selects the target register of a DMAMOV instruction.
type Reg uint8

const (
	SAR Reg = 0 // source address
	CCR Reg = 1 // channel control
	DAR Reg = 2 // destination address
)

// AddrReg selects the register of a DMAADDH/DMAADNH instruction.
type AddrReg uint8

const (
	AddrSAR AddrReg = 0
	AddrDAR AddrReg = 1
)

// Cond makes a load or store conditional on the active request type.
type Cond uint8

const (
	Always Cond = iota // execute unconditionally
	Single             // execute for single requests, else DMANOP
	Burst              // execute for burst requests, else DMANOP
)

// ldstBits returns the bs/x bits shared by DMALD, DMAST and DMALPEND.
func (c Cond) ldstBits() byte {
	switch c {
	case Single:
		return 0x1
	case Burst:
		return 0x3
	}
	return 0x0
}

// Mov appends a DMAMOV, loading a 32 bit immediate into an address or
// control register.
func (p *Program) Mov(rd Reg, imm uint32) error {
	if rd > DAR {
		return ErrOutOfRange
	}
	b, err := p.grow(6)
	if err != nil {
		return err
	}
	b[0] = opMov
	b[1] = byte(rd)
	binary.LittleEndian.PutUint32(b[2:], imm)
	return nil
}

// AddHalf appends a DMAADDH, adding a 16 bit immediate to an address
// register.
func (p *Program) AddHalf(ra AddrReg, imm uint16) error {
	return p.addh(opAddh, ra, imm)
}

// SubHalf appends a DMAADNH, adding the negated 16 bit immediate to an
// address register.
func (p *Program) SubHalf(ra AddrReg, imm uint16) error {
	return p.addh(opAdnh, ra, ^imm+1)
}

func (p *Program) addh(op byte, ra AddrReg, imm uint16) error {
	if ra > AddrDAR {
		return ErrOutOfRange
	}
	b, err := p.grow(3)
	if err != nil {
		return err
	}
	b[0] = op | byte(ra)<<1
	binary.LittleEndian.PutUint16(b[1:], imm)
	return nil
}

// Load appends a DMALD, loading one burst as configured in CCR from the
// source address.
func (p *Program) Load(c Cond) error {
	return p.append1(opLd | c.ldstBits())
}

// Store appends a DMAST, storing one burst as configured in CCR to the
// destination address.
func (p *Program) Store(c Cond) error {
	return p.append1(opSt | c.ldstBits())
}

// StoreZero appends a DMASTZ, storing one burst of zeros to the destination
// address.
func (p *Program) StoreZero() error {
	return p.append1(opStz)
}

// LoadPeriph appends a DMALDP, a load paired with a peripheral handshake.
func (p *Program) LoadPeriph(c Cond, periph PeriphID) error {
	return p.periph2(opLdp&^0x02|c.periphBit(), periph)
}

// StorePeriph appends a DMASTP, a store paired with a peripheral handshake.
func (p *Program) StorePeriph(c Cond, periph PeriphID) error {
	return p.periph2(opStp&^0x02|c.periphBit(), periph)
}

// periphBit returns the bs bit of DMALDP/DMASTP/DMAWFP. Always is not
// encodable for peripheral handshakes.
func (c Cond) periphBit() byte {
	if c == Burst {
		return 0x2
	}
	return 0x0
}

// Kill appends a DMAKILL. Only meaningful in a debug instruction, a channel
// cannot kill itself gracefully.
func (p *Program) Kill() error { return p.append1(opKill) }

// Nop appends a DMANOP.
func (p *Program) Nop() error { return p.append1(opNop) }

// End appends a DMAEND, terminating the thread.
func (p *Program) End() error { return p.append1(opEnd) }

// ReadBarrier appends a DMARMB, stalling until all issued reads completed.
func (p *Program) ReadBarrier() error { return p.append1(opRmb) }

// WriteBarrier appends a DMAWMB, stalling until all issued writes completed.
func (p *Program) WriteBarrier() error { return p.append1(opWmb) }

func (p *Program) append1(op byte) error {
	b, err := p.grow(1)
	if err != nil {
		return err
	}
	b[0] = op
	return nil
}

// SendEvent appends a DMASEV raising the given event line. The driver's
// reserved [AbortEvent] is refused.
func (p *Program) SendEvent(event int) error {
	if event < 0 || event >= NumEvents {
		return ErrOutOfRange
	}
	if event == AbortEvent {
		return ErrUnsupported
	}
	return p.event2(opSev, event, 0)
}

// WaitEvent appends a DMAWFE stalling the thread until the given event is
// raised. With invalidate set the thread's instruction cache is invalidated
// on wakeup.
func (p *Program) WaitEvent(event int, invalidate bool) error {
	if event < 0 || event >= NumEvents {
		return ErrOutOfRange
	}
	flags := 0
	if invalidate {
		flags = 0x2
	}
	return p.event2(opWfe, event, byte(flags))
}

func (p *Program) event2(op byte, event int, flags byte) error {
	b, err := p.grow(2)
	if err != nil {
		return err
	}
	b[0] = op
	b[1] = byte(event)<<3 | flags
	return nil
}

// WaitPeriph appends a DMAWFP stalling the thread until the peripheral
// raises a request. Always drives the request type from the peripheral
// ("periph" mode), Single and Burst force the respective type.
func (p *Program) WaitPeriph(c Cond, periph PeriphID) error {
	op := byte(opWfp)
	switch c {
	case Always:
		op |= 0x1 // p bit
	case Burst:
		op |= 0x2
	}
	return p.periph2(op, periph)
}

// FlushPeriph appends a DMAFLUSHP, clearing the peripheral's request state
// and resuming its handshake from scratch.
func (p *Program) FlushPeriph(periph PeriphID) error {
	return p.periph2(opFlushp, periph)
}

func (p *Program) periph2(op byte, periph PeriphID) error {
	if periph >= NumPeriphs {
		return ErrOutOfRange
	}
	b, err := p.grow(2)
	if err != nil {
		return err
	}
	b[0] = op
	b[1] = byte(periph) << 3
	return nil
}

// Go appends a DMAGO, starting channel ch at the program address addr. Only
// meaningful in a debug instruction issued to the manager thread.
func (p *Program) Go(ch int, addr uint32, nonsecure bool) error {
	if ch < 0 || ch >= NumChannels {
		return ErrOutOfRange
	}
	b, err := p.grow(6)
	if err != nil {
		return err
	}
	b[0] = opGo
	if nonsecure {
		b[0] |= 0x2
	}
	b[1] = byte(ch)
	binary.LittleEndian.PutUint32(b[2:], addr)
	return nil
}

// Loop appends a DMALP starting a loop of the given iteration count,
// reserving one of the two hardware loop counters. Every Loop must be
// closed with [Program.LoopEnd].
func (p *Program) Loop(iterations int) error {
	return p.LoopAt(len(p.buf), iterations)
}

// LoopAt inserts a DMALP retroactively at offset off, turning the already
// encoded instructions from off onwards into the loop body. This lets the
// caller emit straight line code first and wrap it in a loop once its final
// length is known to fit the hardware's jump range.
func (p *Program) LoopAt(off, iterations int) error {
	if iterations < 1 || iterations > maxLoopIter {
		return ErrOutOfRange
	}
	if off < 0 || off > len(p.buf) {
		return ErrOutOfRange
	}
	for _, f := range p.loops {
		// An inserted loop must nest inside all open loops.
		if off < f.body {
			return ErrOutOfRange
		}
	}
	lc, err := p.claimCounter()
	if err != nil {
		return err
	}
	b, err := p.insert(off, 2)
	if err != nil {
		p.releaseCounter(lc)
		return err
	}
	b[0] = opLp | byte(lc)<<1
	b[1] = byte(iterations - 1)
	p.loops = append(p.loops, loopFrame{counter: lc, body: off + 2})
	return nil
}

// LoopEnd appends a DMALPEND closing the innermost open loop. The loop body
// must not exceed the hardware's backwards jump range of 255 bytes. cond
// applies the same request type condition as on loads and stores.
func (p *Program) LoopEnd(cond Cond) error {
	if len(p.loops) == 0 {
		return ErrNotFound
	}
	f := p.loops[len(p.loops)-1]
	jump := len(p.buf) - f.body
	if jump > maxLoopJump {
		return ErrOutOfRange
	}
	b, err := p.grow(2)
	if err != nil {
		return err
	}
	b[0] = opLpEnd | opLpEndNF | byte(f.counter)<<2 | cond.ldstBits()
	b[1] = byte(jump)
	p.loops = p.loops[:len(p.loops)-1]
	p.releaseCounter(f.counter)
	return nil
}
