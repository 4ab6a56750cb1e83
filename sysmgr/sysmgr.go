// Package sysmgr drives the DMA related portion of the HPS system manager:
// the security state the DMA manager thread, events and peripheral request
// interfaces boot with, and the request interface mux.
//
// The configuration only takes effect while the DMA controller is held in
// reset, see [rstmgr.Block.AssertDMA].
//
// The block is addressed through an explicit handle instead of a package
// global so tests can back it with plain memory.
package sysmgr

import (
	"errors"
	"unsafe"

	"github.com/de1soc/hps"
	"github.com/de1soc/hps/mmio"
)

var ErrBadSecurity = errors.New("sysmgr: bad security enum")
var ErrBadMux = errors.New("sysmgr: bad mux enum")
var ErrNoMux = errors.New("sysmgr: no request mux on this family")

// Security selects the boot security state of a DMA resource.
type Security uint8

const (
	SecurityDefault Security = iota // keep the reset value
	Secure
	NonSecure
)

// MuxSelect picks the source routed to one of the shared request
// interfaces 4-7.
type MuxSelect uint8

const (
	MuxDefault MuxSelect = iota // keep the reset value
	MuxFPGA
	MuxCAN
)

// The DMA group of the system manager. Its offset from the system manager
// base differs per family.
type dmaRegs struct {
	ctrl        mmio.U32 // mux select and manager/irq security
	persecurity mmio.U32 // request interface security, one bit per periph
}

const (
	dmaGrpCycloneV = 0x70
	dmaGrpArria10  = 0x280
)

// ctrl register fields.
const (
	ctrlChanSel = 0 // 4 bits, Cyclone V: route CAN instead of FPGA 4-7
	ctrlMgrNS   = 4 // 1 bit, manager thread boots non-secure
	ctrlIrqNS   = 5 // 8 bits, event lines boot non-secure
)

// Block is a handle to the system manager's DMA group.
type Block struct {
	regs    *dmaRegs
	variant hps.Variant
}

// At returns a handle to the system manager at base, usually
// [hps.SysMgrBase].
func At(base unsafe.Pointer, v hps.Variant) *Block {
	off := uintptr(dmaGrpCycloneV)
	if v == hps.Arria10 {
		off = dmaGrpArria10
	}
	return &Block{regs: (*dmaRegs)(unsafe.Add(base, off)), variant: v}
}

// DMAConfig describes the security and mux state applied before the DMA
// controller leaves reset.
type DMAConfig struct {
	Manager Security
	// Events holds the boot security of the 8 event/interrupt lines.
	Events [8]Security
	// Periphs holds the boot security of the request interfaces.
	Periphs [32]Security
	// Mux routes CAN interfaces instead of FPGA lines to request
	// interfaces 4-7, one selection per interface. Cyclone V only.
	Mux [4]MuxSelect
}

// ConfigureDMA applies cfg to the system manager registers.
func (b *Block) ConfigureDMA(cfg DMAConfig) error {
	ctrl := b.regs.ctrl.Load()
	var err error
	for i, m := range cfg.Mux {
		if m != MuxDefault && b.variant != hps.CycloneV {
			return ErrNoMux
		}
		ctrl, err = muxBit(ctrl, m, ctrlChanSel+uint(i))
		if err != nil {
			return err
		}
	}
	ctrl, err = secBit(ctrl, cfg.Manager, ctrlMgrNS)
	if err != nil {
		return err
	}
	for i, s := range cfg.Events {
		ctrl, err = secBit(ctrl, s, ctrlIrqNS+uint(i))
		if err != nil {
			return err
		}
	}
	per := b.regs.persecurity.Load()
	for i, s := range cfg.Periphs {
		per, err = secBit(per, s, uint(i))
		if err != nil {
			return err
		}
	}
	b.regs.ctrl.Store(ctrl)
	b.regs.persecurity.Store(per)
	return nil
}

// secBit applies one security enum to a non-secure bit position.
func secBit(reg uint32, s Security, bit uint) (uint32, error) {
	switch s {
	case SecurityDefault:
		return reg, nil
	case Secure:
		return reg &^ (1 << bit), nil
	case NonSecure:
		return reg | 1<<bit, nil
	}
	return reg, ErrBadSecurity
}

// muxBit applies one mux selection to a CAN select bit position.
func muxBit(reg uint32, m MuxSelect, bit uint) (uint32, error) {
	switch m {
	case MuxDefault:
		return reg, nil
	case MuxFPGA:
		return reg &^ (1 << bit), nil
	case MuxCAN:
		return reg | 1<<bit, nil
	}
	return reg, ErrBadMux
}
