// Package dma drives the DMA-330 controller of the HPS. It covers building
// instruction programs for the engine's channel threads, synthesizing such
// programs for plain memory copies, and running them through the 8 channel
// lifecycle with abort and fault handling.
//
// The controller is a concurrent hardware actor, synchronization with it
// happens by polling status registers or through the event/interrupt lines.
// A [Controller] itself is not safe for concurrent use from multiple
// goroutines or interrupt handlers, callers serialize access.
package dma

import (
	"unsafe"

	"github.com/de1soc/hps"
	"github.com/de1soc/hps/rstmgr"
	"github.com/de1soc/hps/sysmgr"
)

// Controller is a handle to one interface of the DMA-330. It tracks a shadow
// of the hardware's per channel state, reconciled on every poll.
type Controller struct {
	regs    *registers
	variant hps.Variant

	wordSize       uint32
	shortThreshold uint32

	ch       [NumChannels]channel
	mgrFault Fault

	abortPending bool

	// dbg is the scratch program serialized into the debug port, owned
	// for the controller's lifetime.
	dbg *Program

	// seq distributes automatically assigned transfers over the channels.
	seq uint32

	hw *HWConfig
}

// Config carries the tunables of [New]. The zero value selects a Cyclone V
// with 4 byte words and no hardware init.
type Config struct {
	Variant hps.Variant

	// WordSize is the native transfer granularity in bytes, a power of
	// two up to 16. Defaults to 4.
	WordSize uint32

	// ShortThreshold is the transfer length at or below which
	// [Controller.Setup] copies with the CPU instead of the engine.
	// Defaults to two words.
	ShortThreshold uint32

	// HW, when set, sequences the controller through reset and applies
	// the system manager security and mux configuration on the way.
	HW *HWConfig
}

// HWConfig groups the collaborator blocks touched during hardware init. The
// security and mux state only latches while the controller sits in reset,
// so it is applied between reset assert and release.
type HWConfig struct {
	Rst *rstmgr.Block
	Sys *sysmgr.Block
	DMA sysmgr.DMAConfig
}

// New returns a controller for the register block at base, usually
// [hps.DMASecure] or [hps.DMANonSecure] mapped into the address space.
func New(base unsafe.Pointer, cfg Config) (*Controller, error) {
	if base == nil {
		return nil, ErrNilPointer
	}
	if uintptr(base)&0xfff != 0 {
		return nil, ErrAlignment
	}
	word := cfg.WordSize
	if word == 0 {
		word = 4
	}
	if word&(word-1) != 0 || word > maxBurstLen {
		return nil, ErrUnsupported
	}
	short := cfg.ShortThreshold
	if short == 0 {
		short = 2 * word
	}
	c := &Controller{
		regs:           (*registers)(base),
		variant:        cfg.Variant,
		wordSize:       word,
		shortThreshold: short,
		dbg:            NewProgram(8),
		hw:             cfg.HW,
	}
	if err := c.hwReset(); err != nil {
		return nil, err
	}
	return c, nil
}

// hwReset pulses the controller through reset and reapplies the system
// manager configuration. A nop without a [HWConfig].
func (c *Controller) hwReset() error {
	if c.hw == nil || c.hw.Rst == nil {
		return nil
	}
	c.hw.Rst.AssertDMA()
	if c.hw.Sys != nil {
		if err := c.hw.Sys.ConfigureDMA(c.hw.DMA); err != nil {
			c.hw.Rst.ReleaseDMA()
			return err
		}
	}
	c.hw.Rst.ReleaseDMA()
	return nil
}

// copyMemory services short transfers with the CPU. Reassigned by the host
// side tests, where physical addresses are not mapped.
var copyMemory = func(write, read hps.Addr, n uint32) {
	dst := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(write))), n)
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(read))), n)
	copy(dst, src)
}

// Setup prepares a transfer described by chunk and returns the channel it
// was assigned to. With autoStart the channel is started in the same call,
// otherwise it is left Ready for [Controller.StartChannel].
//
// A default parameter chunk at or below the short transfer threshold with
// autoStart set bypasses the engine, the bytes are copied immediately and
// Setup returns a negative channel and [Skipped]. Engine setup overhead
// exceeds the cost of a tiny copy.
func (c *Controller) Setup(chunk *Chunk, autoStart bool) (int, error) {
	if chunk == nil {
		return -1, ErrNilPointer
	}
	if chunk.Params == nil && autoStart && chunk.Len <= c.shortThreshold {
		copyMemory(chunk.Write, chunk.Read, chunk.Len)
		return -1, Skipped
	}
	par := chunk.Params
	if par == nil {
		def := c.DefaultParams()
		par = &def
	}
	ch := par.Channel
	if ch < 0 {
		ch = int(c.seq % NumChannels)
		c.seq++
	}
	if err := c.checkChannel(ch); err != nil {
		return -1, err
	}
	p := NewProgram(defaultProgramSize)
	p.SetNonSecure(par.NonSecure)
	if err := synthesize(p, chunk, par, ch); err != nil {
		return -1, err
	}
	if err := c.attach(ch, p); err != nil {
		return -1, err
	}
	if autoStart {
		if err := c.StartChannel(ch); err != nil {
			return ch, err
		}
	}
	return ch, nil
}

// SetupProgram readies a hand-built program on channel ch. The program must
// stay untouched until the channel reaches a terminal state, the engine
// reads it in place.
func (c *Controller) SetupProgram(ch int, p *Program, autoStart bool) error {
	if p == nil {
		return ErrNilPointer
	}
	if !p.wellFormed() {
		return ErrInvalidProgram
	}
	if err := c.attach(ch, p); err != nil {
		return err
	}
	if autoStart {
		return c.StartChannel(ch)
	}
	return nil
}

// StartChannel starts the transfer readied on channel ch with a DMAGO
// debug command. ErrBusy from an occupied debug port leaves the channel
// Ready for a retry.
func (c *Controller) StartChannel(ch int) error {
	if err := c.checkChannel(ch); err != nil {
		return err
	}
	st := &c.ch[ch]
	if st.state != Ready {
		return ErrNotReady
	}
	addr := hps.PhysicalAddressSlice(st.prog.buf)
	if err := c.dbgGo(ch, uint32(addr), st.prog.nonsecure); err != nil {
		return err
	}
	st.state = Busy
	return nil
}

// Start starts every channel currently in the Ready state. ErrNotReady if
// there was none.
func (c *Controller) Start() error {
	started := false
	for ch := 0; ch < NumChannels; ch++ {
		if c.ch[ch].state != Ready {
			continue
		}
		if err := c.StartChannel(ch); err != nil {
			return err
		}
		started = true
	}
	if !started {
		return ErrNotReady
	}
	return nil
}

// BusyChannel reports whether channel ch is running a transfer.
func (c *Controller) BusyChannel(ch int) (bool, error) {
	if err := c.checkChannel(ch); err != nil {
		return false, err
	}
	c.refresh(ch)
	return c.ch[ch].state == Busy, nil
}

// Busy reports whether any channel is running a transfer.
func (c *Controller) Busy() bool {
	c.refreshAll()
	for ch := 0; ch < NumChannels; ch++ {
		if c.ch[ch].state == Busy {
			return true
		}
	}
	return false
}

// CompletedChannel polls channel ch for completion. It returns true exactly
// once, acknowledging the completion and freeing the channel. A second poll
// without an intervening transfer fails with ErrBusy. A still running
// transfer returns false with no error, the caller keeps polling. A faulted
// channel fails with a [FaultError], consume it with
// [Controller.CheckState].
func (c *Controller) CompletedChannel(ch int) (bool, error) {
	if err := c.checkChannel(ch); err != nil {
		return false, err
	}
	c.refresh(ch)
	st := &c.ch[ch]
	switch st.state {
	case Ready, Busy:
		return false, nil
	case Done:
		st.release()
		return true, nil
	case Error:
		return false, &FaultError{Channel: ch, Fault: st.fault}
	}
	return false, ErrBusy
}

// Completed polls all channels at once. It returns true when the last
// in-flight transfer has finished, acknowledging every completion. Faults
// surface like in [Controller.CompletedChannel].
func (c *Controller) Completed() (bool, error) {
	c.refreshAll()
	inflight := false
	acked := false
	for ch := 0; ch < NumChannels; ch++ {
		st := &c.ch[ch]
		switch st.state {
		case Ready, Busy:
			inflight = true
		case Done:
			st.release()
			acked = true
		case Error:
			return false, &FaultError{Channel: ch, Fault: st.fault}
		}
	}
	if inflight {
		return false, nil
	}
	if !acked {
		return false, ErrBusy
	}
	return true, nil
}

// AbortMode selects how hard [Controller.Abort] stops the controller.
type AbortMode uint8

const (
	// AbortNone aborts nothing, it re-polls a previously requested
	// abort. ErrBusy while channels are still winding down.
	AbortNone AbortMode = iota
	// AbortSafe kills the running channel threads and lets the engine
	// wind them down. Completion is observed through
	// [Controller.Aborted].
	AbortSafe
	// AbortForce kills all threads and pulses the whole controller
	// through hardware reset. Synchronous, all channels are Aborted on
	// return.
	AbortForce
)

// Abort cancels pending transfers. Channels that are not running, whether
// Ready or finished but not yet acknowledged, are marked Aborted
// immediately. Busy channels are handled per mode. The reserved
// [AbortEvent] line is raised so custom programs waiting on it can bail
// out.
func (c *Controller) Abort(mode AbortMode) error {
	switch mode {
	case AbortNone:
		c.refreshAll()
		if !c.abortPending {
			return nil
		}
		for ch := 0; ch < NumChannels; ch++ {
			if c.ch[ch].state == Busy && c.ch[ch].aborting {
				return ErrBusy
			}
		}
		return nil
	case AbortSafe:
		c.refreshAll()
		for ch := 0; ch < NumChannels; ch++ {
			st := &c.ch[ch]
			switch st.state {
			case Ready, Done, Error:
				// Nothing left to wind down, the thread is already
				// stopped.
				st.state = Aborted
			case Busy:
				if err := c.dbgKill(ch); err != nil {
					return err
				}
				st.aborting = true
			}
		}
		c.abortPending = true
		return c.dbgSendEvent(AbortEvent)
	case AbortForce:
		// Best effort thread kills before the reset pulse, a thread
		// mid-burst should not die with the bus transaction pending.
		c.dbgKillManager()
		for ch := 0; ch < NumChannels; ch++ {
			c.dbgKill(ch)
		}
		if err := c.hwReset(); err != nil {
			return err
		}
		for ch := 0; ch < NumChannels; ch++ {
			st := &c.ch[ch]
			if st.state != Free {
				st.state = Aborted
				st.aborting = true
			}
		}
		c.abortPending = true
		return nil
	}
	return ErrUnsupported
}

// AbortedChannel polls channel ch for abort completion, with the same
// acknowledge-once discipline as [Controller.CompletedChannel].
func (c *Controller) AbortedChannel(ch int) (bool, error) {
	if err := c.checkChannel(ch); err != nil {
		return false, err
	}
	c.refresh(ch)
	st := &c.ch[ch]
	switch st.state {
	case Busy:
		return false, nil
	case Aborted:
		st.release()
		return true, nil
	}
	return false, ErrBusy
}

// Aborted polls all channels for abort completion. It returns true once
// every channel hit by the last [Controller.Abort] has wound down,
// acknowledging them. ErrBusy without a pending abort.
func (c *Controller) Aborted() (bool, error) {
	if !c.abortPending {
		return false, ErrBusy
	}
	c.refreshAll()
	for ch := 0; ch < NumChannels; ch++ {
		if st := &c.ch[ch]; st.state == Busy && st.aborting {
			return false, nil
		}
	}
	for ch := 0; ch < NumChannels; ch++ {
		if st := &c.ch[ch]; st.state == Aborted {
			st.release()
		}
	}
	c.abortPending = false
	return true, nil
}

// EnableIRQ routes the given event lines to the interrupt output instead of
// the engine's internal event logic.
func (c *Controller) EnableIRQ(events EventFlag) {
	c.regs.inten.SetBits(events)
}

// DisableIRQ reverts [Controller.EnableIRQ] for the given lines.
func (c *Controller) DisableIRQ(events EventFlag) {
	c.regs.inten.ClearBits(events)
}

// IRQFlags returns the pending, interrupt-enabled event lines.
func (c *Controller) IRQFlags() EventFlag {
	return c.regs.intmis.Load()
}

// RawEvents returns all pending event lines, enabled as interrupts or not.
func (c *Controller) RawEvents() EventFlag {
	return c.regs.intEventRis.Load()
}

// ClearIRQ acknowledges the given pending event lines.
func (c *Controller) ClearIRQ(events EventFlag) {
	c.regs.intclr.Store(events)
}

// Close kills all controller threads and parks the hardware in reset. The
// controller must not be used afterwards.
func (c *Controller) Close() error {
	c.dbgKillManager()
	for ch := 0; ch < NumChannels; ch++ {
		c.dbgKill(ch)
		c.ch[ch].release()
	}
	if c.hw != nil && c.hw.Rst != nil {
		c.hw.Rst.AssertDMA()
	}
	c.dbg = nil
	return nil
}
