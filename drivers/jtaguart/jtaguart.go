// Package jtaguart drives the Altera JTAG UART soft core, the default debug
// console of the Leeds SoC Computer. It sits behind the lightweight
// HPS-to-FPGA bridge and needs no baud rate setup, the JTAG link paces
// itself.
package jtaguart

import (
	"unsafe"

	"github.com/de1soc/hps/mmio"
)

type registers struct {
	data    mmio.U32 // byte in [7:0], RVALID bit 15, RAVAIL in [31:16]
	control mmio.U32 // irq enables in [1:0], AC bit 10, WSPACE in [31:16]
}

const (
	dataRValid = 1 << 15
	ctrlAC     = 1 << 10 // host activity since last cleared
)

// UART is a handle to one JTAG UART core.
type UART struct {
	regs *registers
}

// At returns a handle to the core's register pair at base.
func At(base unsafe.Pointer) *UART {
	return &UART{regs: (*registers)(base)}
}

// Connected reports whether a host read the FIFO recently. Clears the
// activity flag, so a single stale probe does not stick forever.
func (u *UART) Connected() bool {
	c := u.regs.control.Load()
	u.regs.control.Store(c | ctrlAC)
	return c&ctrlAC != 0
}

// Write sends p over the JTAG link. It spins while the 64 byte transmit
// FIFO is full, which blocks indefinitely if no host drains it.
func (u *UART) Write(p []byte) (n int, err error) {
	for _, b := range p {
		for u.regs.control.Load()>>16 == 0 {
			// wait for FIFO space
		}
		u.regs.data.Store(uint32(b))
		n++
	}
	return n, nil
}

// Read drains up to len(p) bytes already received. It does not block, a
// connected but idle host yields n = 0.
func (u *UART) Read(p []byte) (n int, err error) {
	for n < len(p) {
		d := u.regs.data.Load()
		if d&dataRValid == 0 {
			break
		}
		p[n] = byte(d)
		n++
	}
	return n, nil
}
