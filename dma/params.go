package dma

import (
	"math/bits"

	"github.com/de1soc/hps/bitfield"
)

// TargetType describes one endpoint of a transfer.
type TargetType uint8

const (
	// TargetMemory is an incrementing address range in memory.
	TargetMemory TargetType = iota
	// TargetRegister is a fixed address, e.g. a peripheral data register.
	// Requires strict alignment, see [Controller.Setup].
	TargetRegister
	// TargetZero fills the destination with zeros. Source only.
	TargetZero
	// TargetPeriph is a flow-controlled peripheral. Not supported by the
	// synthesizer, hand-build a program with [Program.WaitPeriph] and
	// [Program.LoadPeriph] instead.
	TargetPeriph
)

// ProtCtrl is the 3 bit AXI protection attribute of one transfer side.
type ProtCtrl uint8

const (
	ProtPrivileged ProtCtrl = 1 << 0
	ProtNonSecure  ProtCtrl = 1 << 1
	ProtInstr      ProtCtrl = 1 << 2
)

// CacheCtrl is the 3 bit AXI cacheability attribute of one transfer side.
type CacheCtrl uint8

const (
	CacheBufferable CacheCtrl = 1 << 0
	CacheCacheable  CacheCtrl = 1 << 1
	CacheAllocate   CacheCtrl = 1 << 2
)

// EndianSwap selects the endianness swap applied by the engine's data path.
type EndianSwap uint8

const (
	SwapNone EndianSwap = iota
	Swap16
	Swap32
	Swap64
	Swap128
)

// ChannelParams describes how one transfer is carried out. The zero value
// is not meaningful, start from [DefaultParams].
type ChannelParams struct {
	SrcType TargetType
	DstType TargetType

	SrcProt  ProtCtrl
	DstProt  ProtCtrl
	SrcCache CacheCtrl
	DstCache CacheCtrl

	// BurstWidth is the transfer granularity in bytes, a power of two up
	// to 16. It defaults to the controller's configured word size.
	BurstWidth uint32

	Swap EndianSwap

	// Channel selects the target channel thread, negative for automatic
	// assignment.
	Channel int

	// Burst enables the engine's native multi-beat bursts. When
	// disabled, the synthesizer falls back to loops of single beats.
	Burst bool

	// Event makes the channel raise its completion event at the end of
	// the program, which the polling and IRQ logic relies on. Disable
	// only for hand-polled custom setups.
	Event bool

	NonSecure bool

	// Burst geometry resolved by the synthesizer for the last transfer.
	plan burstPlan
}

// burstPlan is the burst geometry the synthesizer resolved from a chunk's
// addresses and length.
type burstPlan struct {
	readInitial  uint32 // bytes to word-align the source
	writeInitial uint32 // bytes to word-align the destination
	words        uint32 // whole word beats in the bulk phase
	tail         uint32 // leftover source bytes
	srcInc       bool
	dstInc       bool
}

// DefaultParams returns parameters for a plain memory to memory copy on an
// automatically assigned channel, using the controller's word size.
func (c *Controller) DefaultParams() ChannelParams {
	return ChannelParams{
		SrcType:    TargetMemory,
		DstType:    TargetMemory,
		BurstWidth: c.wordSize,
		Channel:    -1,
		Burst:      true,
		Event:      true,
	}
}

// CCR field offsets, per the DMA-330 TRM.
const (
	ccrSrcInc       = 0  // 1 bit
	ccrSrcBurstSize = 1  // 3 bits, log2 bytes per beat
	ccrSrcBurstLen  = 4  // 4 bits, beats per burst - 1
	ccrSrcProt      = 8  // 3 bits
	ccrSrcCache     = 11 // 3 bits
	ccrDstInc       = 14 // 1 bit
	ccrDstBurstSize = 15 // 3 bits
	ccrDstBurstLen  = 18 // 4 bits
	ccrDstProt      = 22 // 3 bits
	ccrDstCache     = 25 // 3 bits
	ccrEndianSwap   = 28 // 4 bits
)

// ctrlWord packs one phase's burst configuration into a channel control
// word. Sizes are in bytes and must be powers of two, lengths are in beats
// starting at 1.
func (par *ChannelParams) ctrlWord(srcSize, srcLen, dstSize, dstLen uint32) uint32 {
	w := bitfield.Insert(uint32(bits.TrailingZeros32(srcSize)), ccrSrcBurstSize, 3) |
		bitfield.Insert(srcLen-1, ccrSrcBurstLen, 4) |
		bitfield.Insert(uint32(par.SrcProt), ccrSrcProt, 3) |
		bitfield.Insert(uint32(par.SrcCache), ccrSrcCache, 3) |
		bitfield.Insert(uint32(bits.TrailingZeros32(dstSize)), ccrDstBurstSize, 3) |
		bitfield.Insert(dstLen-1, ccrDstBurstLen, 4) |
		bitfield.Insert(uint32(par.DstProt), ccrDstProt, 3) |
		bitfield.Insert(uint32(par.DstCache), ccrDstCache, 3) |
		bitfield.Insert(uint32(par.Swap), ccrEndianSwap, 4)
	if par.plan.srcInc {
		w |= 1 << ccrSrcInc
	}
	if par.plan.dstInc {
		w |= 1 << ccrDstInc
	}
	return w
}

// validate checks the parameter combination before synthesis.
func (par *ChannelParams) validate() error {
	switch par.SrcType {
	case TargetMemory, TargetRegister, TargetZero:
	case TargetPeriph:
		return ErrUnsupported
	default:
		return ErrUnsupported
	}
	switch par.DstType {
	case TargetMemory, TargetRegister:
	default:
		return ErrUnsupported
	}
	if par.Swap > Swap128 {
		return ErrUnsupported
	}
	w := par.BurstWidth
	if w == 0 || w > 16 || w&(w-1) != 0 {
		return ErrOutOfRange
	}
	if par.Channel >= NumChannels {
		return ErrOutOfRange
	}
	return nil
}

// strictAlignment reports whether the parameter combination forbids the
// synthesizer's byte-granular skew correction.
func (par *ChannelParams) strictAlignment() bool {
	return par.SrcType == TargetRegister || par.DstType == TargetRegister ||
		par.Swap != SwapNone
}
