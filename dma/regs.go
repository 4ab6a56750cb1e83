package dma

import (
	"github.com/de1soc/hps/mmio"
)

// Register map of the DMA-330 controller as found in the HPS of both SoC
// families. Offsets per the Cyclone V HPS TRM:
//
//	0x000	manager status, interrupt and fault registers
//	0x100	per channel thread status (CSR, CPC)
//	0x400	per channel AXI status (SAR, DAR, CCR, LC0, LC1)
//	0xd00	debug port
//	0xe00	static configuration
//	0xe80	watchdog
type registers struct {
	dsr         mmio.R32[mgrStatus]          // 0x000 manager thread status
	dpc         mmio.U32                     // 0x004 manager program counter
	_           [6]uint32                    //
	inten       mmio.R32[EventFlag]          // 0x020 event/interrupt select
	intEventRis mmio.R32[EventFlag]          // 0x024 raw event status
	intmis      mmio.R32[EventFlag]          // 0x028 masked interrupt status
	intclr      mmio.R32[EventFlag]          // 0x02c interrupt clear
	fsrd        mmio.U32                     // 0x030 manager fault state
	fsrc        mmio.U32                     // 0x034 per channel fault state
	ftrd        mmio.R32[Fault]              // 0x038 manager fault type
	_           uint32                       //
	ftr         [NumChannels]mmio.R32[Fault] // 0x040 per channel fault type
	_           [40]uint32                   //
	chstat      [NumChannels]chStatusRegs    // 0x100
	_           [176]uint32                  //
	chaxi       [NumChannels]chAXIRegs       // 0x400
	_           [512]uint32                  //
	dbgstatus   mmio.U32                     // 0xd00
	dbgcmd      mmio.U32                     // 0xd04
	dbginst0    mmio.U32                     // 0xd08
	dbginst1    mmio.U32                     // 0xd0c
	_           [60]uint32                   //
	cr0         mmio.U32                     // 0xe00 resource configuration
	cr1         mmio.U32                     // 0xe04 instruction cache
	cr2         mmio.U32                     // 0xe08 manager boot address
	cr3         mmio.U32                     // 0xe0c security state of events
	cr4         mmio.U32                     // 0xe10 security state of peripherals
	crd         mmio.U32                     // 0xe14 read/write issuing and queue depths
	_           [26]uint32                   //
	wd          mmio.U32                     // 0xe80 watchdog lockup behaviour
}

type chStatusRegs struct {
	csr mmio.R32[chStatus] // channel status and wakeup cause
	cpc mmio.U32           // channel program counter
}

type chAXIRegs struct {
	sar mmio.U32 // source address
	dar mmio.U32 // destination address
	ccr mmio.U32 // channel control word
	lc0 mmio.U32 // loop counter 0
	lc1 mmio.U32 // loop counter 1
	_   [3]uint32
}

// Thread execution status, bits [3:0] of DSR and CSR.
type threadState uint32

const (
	threadStopped      threadState = 0x0
	threadExecuting    threadState = 0x1
	threadCacheMiss    threadState = 0x2
	threadUpdatingPC   threadState = 0x3
	threadWFE          threadState = 0x4
	threadAtBarrier    threadState = 0x5
	threadWFP          threadState = 0x7
	threadKilling      threadState = 0x8
	threadCompleting   threadState = 0x9
	threadFaultingDone threadState = 0xe
	threadFaulting     threadState = 0xf

	threadStateMask = 0xf
)

type mgrStatus uint32

func (s mgrStatus) state() threadState { return threadState(s) & threadStateMask }

// dnsBit reports whether the manager operates in the non-secure state.
const dnsBit mgrStatus = 1 << 9

type chStatus uint32

func (s chStatus) state() threadState { return threadState(s) & threadStateMask }

// wakeup returns the event or peripheral number the thread waits for while
// in the WFE or WFP state.
func (s chStatus) wakeup() int { return int(s>>4) & 0x1f }

// faulting reports whether the channel is in either faulting state.
func (s chStatus) faulting() bool {
	st := s.state()
	return st == threadFaulting || st == threadFaultingDone
}

// EventFlag is a bitmask of the controller's event/interrupt lines. Events
// 0-7 are assigned 1:1 to the channels' completion signals, event
// [AbortEvent] is raised when transfers get aborted.
type EventFlag uint32

// EventForChannel returns the completion event flag of a channel.
func EventForChannel(ch int) EventFlag { return 1 << ch }

// Debug port bits.
const (
	dbgBusy uint32 = 1 << 0 // DBGSTATUS: debug instruction in progress

	dbgExecute uint32 = 0 // DBGCMD: execute DBGINST0/1

	dbgThreadChannel uint32 = 1 << 0 // DBGINST0: channel thread, not manager
)
