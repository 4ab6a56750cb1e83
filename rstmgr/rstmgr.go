// Package rstmgr drives the HPS reset manager, as far as the peripherals of
// this module need it: asserting and releasing module level resets.
//
// The block is addressed through an explicit handle instead of a package
// global so tests can back it with plain memory.
package rstmgr

import (
	"unsafe"

	"github.com/de1soc/hps"
	"github.com/de1soc/hps/mmio"
)

// Register layout shared by both families. Only the per module reset
// registers differ in position and bit assignment.
type registers struct {
	stat          mmio.U32 // 0x00
	ctrl          mmio.U32 // 0x04
	counts        mmio.U32 // 0x08
	_             uint32
	mpumodrst     mmio.U32 // 0x10
	permodrst     mmio.U32 // 0x14 Cyclone V per module reset
	per2modrst    mmio.U32 // 0x18
	_             [2]uint32
	per0modrstA10 mmio.U32 // 0x24 Arria 10 per module reset 0
}

// DMA module reset bits.
const (
	dmaRstCycloneV = 1 << 28
	dmaRstArria10  = 1 << 16
)

// Block is a handle to a reset manager instance.
type Block struct {
	regs    *registers
	variant hps.Variant
}

// At returns a handle to the reset manager at base, usually
// [hps.RstMgrBase].
func At(base unsafe.Pointer, v hps.Variant) *Block {
	return &Block{regs: (*registers)(base), variant: v}
}

func (b *Block) dmaReg() (*mmio.U32, uint32) {
	if b.variant == hps.Arria10 {
		return &b.regs.per0modrstA10, dmaRstArria10
	}
	return &b.regs.permodrst, dmaRstCycloneV
}

// AssertDMA places the DMA controller into reset. All channel threads stop
// and all controller state is lost.
func (b *Block) AssertDMA() {
	reg, bit := b.dmaReg()
	reg.SetBits(bit)
}

// ReleaseDMA takes the DMA controller out of reset. The manager thread
// reboots in the security state sampled from the system manager.
func (b *Block) ReleaseDMA() {
	reg, bit := b.dmaReg()
	reg.ClearBits(bit)
}

// DMAInReset reports whether the DMA controller is currently held in reset.
func (b *Block) DMAInReset() bool {
	reg, bit := b.dmaReg()
	return reg.LoadBits(bit) != 0
}
