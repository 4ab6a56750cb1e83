// The hps package provides a hardware abstraction layer for the Hard
// Processor System of the Leeds SoC Computer (Terasic DE1-SoC and
// Arria 10 devkit).
//
// It implements low-level access to the hardware. All hardware capabilities
// are directly exposed and in general unsafe. Use the higher level libraries
// to write applications instead.
package hps

import "unsafe"

// Addr represents a physical memory address on the HPS bus.
type Addr uint32

// PhysicalAddress returns the physical address of a virtual address. The HPS
// runs with a flat identity mapping, so this is a plain narrowing.
func PhysicalAddress(addr uintptr) Addr {
	return Addr(addr)
}

// Same as [PhysicalAddress] but for slices.
func PhysicalAddressSlice(s []byte) Addr {
	return PhysicalAddress(uintptr(unsafe.Pointer(unsafe.SliceData(s))))
}

// Variant selects the SoC family the HPS belongs to. The peripheral request
// map and the system manager layout differ between the two families, the
// register maps of the peripherals themselves do not.
type Variant uint8

const (
	CycloneV Variant = iota // DE1-SoC, DE10-Nano, DE10-Standard
	Arria10
)

func (v Variant) String() string {
	switch v {
	case CycloneV:
		return "Cyclone V"
	case Arria10:
		return "Arria 10"
	}
	return "unknown"
}

// Fixed physical base addresses of the peripheral blocks used by this
// module. Addresses are identical on both variants unless noted.
const (
	LWFPGABase   uintptr = 0xff20_0000 // lightweight HPS-to-FPGA bridge
	DMASecure    uintptr = 0xffe0_0000 // DMA-330 secure interface
	DMANonSecure uintptr = 0xffe0_1000 // DMA-330 non-secure interface
)

// Cyclone V only. The Arria 10 equivalents are passed to [sysmgr] and
// [rstmgr] explicitly, see their package docs.
const (
	RstMgrBase uintptr = 0xffd0_5000
	SysMgrBase uintptr = 0xffd0_8000
)

// Arria 10 bases.
const (
	RstMgrBaseA10 uintptr = 0xffd0_5000
	SysMgrBaseA10 uintptr = 0xffd0_6000
)
