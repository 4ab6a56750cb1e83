package dma

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/de1soc/hps"
	"github.com/de1soc/hps/rstmgr"
	"github.com/de1soc/hps/sysmgr"
)

// newTestController backs the register block with plain memory. The mmio
// cells go through sync/atomic, so the driver's accesses land in the buffer
// where the test can observe and manipulate them.
func newTestController(t *testing.T, cfg Config) *Controller {
	t.Helper()
	mem := make([]uint32, 0x2000/4)
	t.Cleanup(func() { runtime.KeepAlive(mem) })

	addr := uintptr(unsafe.Pointer(&mem[0]))
	off := (0x1000 - addr&0xfff) & 0xfff
	c, err := New(unsafe.Add(unsafe.Pointer(&mem[0]), off), cfg)
	require.NoError(t, err)
	return c
}

func testProgram(t *testing.T) *Program {
	t.Helper()
	p := NewProgram(64)
	check(t, p.Mov(SAR, 0x1000))
	check(t, p.Mov(DAR, 0x2000))
	check(t, p.Load(Always))
	check(t, p.Store(Always))
	check(t, p.End())
	return p
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{})
	require.ErrorIs(t, err, ErrNilPointer)

	mem := make([]uint32, 0x2000/4)
	defer runtime.KeepAlive(mem)
	addr := uintptr(unsafe.Pointer(&mem[0]))
	off := (0x1000 - addr&0xfff) & 0xfff
	base := unsafe.Add(unsafe.Pointer(&mem[0]), off)

	_, err = New(unsafe.Add(base, 4), Config{})
	require.ErrorIs(t, err, ErrAlignment)

	_, err = New(base, Config{WordSize: 3})
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = New(base, Config{WordSize: 32})
	require.ErrorIs(t, err, ErrUnsupported)

	c, err := New(base, Config{})
	require.NoError(t, err)
	require.Equal(t, uint32(4), c.wordSize)
	require.Equal(t, uint32(8), c.shortThreshold)
}

func TestChannelLifecycle(t *testing.T) {
	c := newTestController(t, Config{})
	p := testProgram(t)

	require.NoError(t, c.SetupProgram(2, p, false))
	require.ErrorIs(t, c.SetupProgram(2, p, false), ErrInUse)

	c.regs.chstat[2].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(2))

	// The start went out as a DMAGO debug command on the manager thread.
	require.Equal(t, uint32(opGo)<<16|2<<24, c.regs.dbginst0.Load())
	progAddr := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(p.buf))))
	require.Equal(t, progAddr, c.regs.dbginst1.Load())

	require.ErrorIs(t, c.StartChannel(2), ErrNotReady)

	par := ChannelParams{SrcType: TargetMemory, DstType: TargetMemory, BurstWidth: 4, Channel: 2, Event: true}
	_, err := c.Setup(&Chunk{Read: 0x1000, Write: 0x2000, Len: 64, Params: &par}, false)
	require.ErrorIs(t, err, ErrBusy)

	busy, err := c.BusyChannel(2)
	require.NoError(t, err)
	require.True(t, busy)
	done, err := c.CompletedChannel(2)
	require.NoError(t, err)
	require.False(t, done)

	c.regs.chstat[2].csr.Store(chStatus(threadStopped))
	done, err = c.CompletedChannel(2)
	require.NoError(t, err)
	require.True(t, done)

	// The completion was consumed, a second poll must not repeat it.
	_, err = c.CompletedChannel(2)
	require.ErrorIs(t, err, ErrBusy)

	st, err := c.CheckState(2)
	require.NoError(t, err)
	require.Equal(t, Free, st)
}

func TestSetupAutoStart(t *testing.T) {
	c := newTestController(t, Config{})

	ch, err := c.Setup(&Chunk{Read: 0x1003, Write: 0x2000, Len: 37, Last: true}, true)
	require.NoError(t, err)
	require.Equal(t, 0, ch)
	require.Equal(t, Busy, c.ch[0].state)

	// Automatic assignment moves to the next channel.
	ch, err = c.Setup(&Chunk{Read: 0x1000, Write: 0x2000, Len: 64}, false)
	require.NoError(t, err)
	require.Equal(t, 1, ch)
	require.Equal(t, Ready, c.ch[1].state)
}

func TestShortTransferBypass(t *testing.T) {
	c := newTestController(t, Config{})

	type copyCall struct {
		write, read hps.Addr
		n           uint32
	}
	var calls []copyCall
	defer func(old func(hps.Addr, hps.Addr, uint32)) { copyMemory = old }(copyMemory)
	copyMemory = func(write, read hps.Addr, n uint32) {
		calls = append(calls, copyCall{write, read, n})
	}

	ch, err := c.Setup(&Chunk{Read: 0x8000, Write: 0x9000, Len: 8}, true)
	require.ErrorIs(t, err, Skipped)
	require.Equal(t, -1, ch)
	require.Equal(t, []copyCall{{0x9000, 0x8000, 8}}, calls)

	// No hardware DMA state was touched.
	for ch := range c.ch {
		require.Equal(t, Free, c.ch[ch].state)
	}
	require.Zero(t, c.regs.dbginst0.Load())

	// Without autoStart the engine path is taken even for short lengths.
	ch, err = c.Setup(&Chunk{Read: 0x8000, Write: 0x9000, Len: 8}, false)
	require.NoError(t, err)
	require.Equal(t, Ready, c.ch[ch].state)
	require.Len(t, calls, 1)
}

func TestFaultHandling(t *testing.T) {
	c := newTestController(t, Config{})
	require.NoError(t, c.SetupProgram(0, testProgram(t), false))
	c.regs.chstat[0].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(0))

	c.regs.chstat[0].csr.Store(chStatus(threadFaulting))
	c.regs.ftr[0].Store(FaultOperandErr | FaultDataWrite)

	_, err := c.CompletedChannel(0)
	var ferr *FaultError
	require.ErrorAs(t, err, &ferr)
	require.Equal(t, 0, ferr.Channel)
	require.Equal(t, FaultOperandErr|FaultDataWrite, ferr.Fault)

	// Observing the Error state through CheckState consumes it: the
	// thread gets killed and the channel returns to Free.
	st, err := c.CheckState(0)
	require.NoError(t, err)
	require.Equal(t, Error, st)
	require.Equal(t, uint32(opKill)<<16|dbgThreadChannel, c.regs.dbginst0.Load())
	require.Equal(t, Free, c.ch[0].state)

	fault, err := c.LastFault(0)
	require.NoError(t, err)
	require.Equal(t, FaultOperandErr|FaultDataWrite, fault)

	c.regs.ftrd.Store(FaultUndefInstr)
	c.CheckState(0)
	require.Equal(t, FaultUndefInstr, c.ManagerFault())
}

func TestDebugPortBusy(t *testing.T) {
	c := newTestController(t, Config{})
	require.NoError(t, c.SetupProgram(1, testProgram(t), false))

	c.regs.dbgstatus.Store(dbgBusy)
	require.ErrorIs(t, c.StartChannel(1), ErrBusy)
	require.Equal(t, Ready, c.ch[1].state)

	c.regs.dbgstatus.Store(0)
	c.regs.chstat[1].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(1))
}

func TestAbortSafe(t *testing.T) {
	c := newTestController(t, Config{})
	require.NoError(t, c.SetupProgram(0, testProgram(t), false))
	require.NoError(t, c.SetupProgram(1, testProgram(t), false))
	c.regs.chstat[1].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(1))

	require.NoError(t, c.Abort(AbortSafe))
	// The never started channel aborts immediately, the running one
	// winds down. The abort event went out last on the debug port.
	require.Equal(t, Aborted, c.ch[0].state)
	require.Equal(t, Busy, c.ch[1].state)
	require.Equal(t, uint32(opSev)<<16|uint32(AbortEvent<<3)<<24, c.regs.dbginst0.Load())

	aborted, err := c.Aborted()
	require.NoError(t, err)
	require.False(t, aborted)
	require.ErrorIs(t, c.Abort(AbortNone), ErrBusy)

	c.regs.chstat[1].csr.Store(chStatus(threadStopped))
	aborted, err = c.Aborted()
	require.NoError(t, err)
	require.True(t, aborted)
	require.Equal(t, Free, c.ch[0].state)
	require.Equal(t, Free, c.ch[1].state)

	_, err = c.Aborted()
	require.ErrorIs(t, err, ErrBusy)
	require.NoError(t, c.Abort(AbortNone))
}

func TestAbortFinishedChannels(t *testing.T) {
	c := newTestController(t, Config{})

	// Channel 0 runs to completion, channel 1 faults. Neither gets
	// acknowledged before the abort.
	require.NoError(t, c.SetupProgram(0, testProgram(t), false))
	c.regs.chstat[0].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(0))
	c.regs.chstat[0].csr.Store(chStatus(threadStopped))

	require.NoError(t, c.SetupProgram(1, testProgram(t), false))
	c.regs.chstat[1].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(1))
	c.regs.chstat[1].csr.Store(chStatus(threadFaulting))
	c.regs.ftr[1].Store(FaultOperandErr)

	require.False(t, c.Busy())
	require.Equal(t, Done, c.ch[0].state)
	require.Equal(t, Error, c.ch[1].state)

	// The abort sweeps up finished but unacknowledged channels, their
	// threads are already stopped.
	require.NoError(t, c.Abort(AbortSafe))
	require.Equal(t, Aborted, c.ch[0].state)
	require.Equal(t, Aborted, c.ch[1].state)

	ok, err := c.AbortedChannel(0)
	require.NoError(t, err)
	require.True(t, ok)

	aborted, err := c.Aborted()
	require.NoError(t, err)
	require.True(t, aborted)
	require.Equal(t, Free, c.ch[0].state)
	require.Equal(t, Free, c.ch[1].state)
}

func TestAbortForce(t *testing.T) {
	c := newTestController(t, Config{})
	require.NoError(t, c.SetupProgram(3, testProgram(t), false))
	c.regs.chstat[3].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(3))

	require.NoError(t, c.Abort(AbortForce))
	require.Equal(t, Aborted, c.ch[3].state)

	aborted, err := c.Aborted()
	require.NoError(t, err)
	require.True(t, aborted)
}

func TestAbortedChannelAckOnce(t *testing.T) {
	c := newTestController(t, Config{})
	require.NoError(t, c.SetupProgram(0, testProgram(t), false))
	c.regs.chstat[0].csr.Store(chStatus(threadExecuting))
	require.NoError(t, c.StartChannel(0))
	require.NoError(t, c.Abort(AbortSafe))

	aborted, err := c.AbortedChannel(0)
	require.NoError(t, err)
	require.False(t, aborted)

	c.regs.chstat[0].csr.Store(chStatus(threadStopped))
	aborted, err = c.AbortedChannel(0)
	require.NoError(t, err)
	require.True(t, aborted)

	_, err = c.AbortedChannel(0)
	require.ErrorIs(t, err, ErrBusy)
}

func TestIRQ(t *testing.T) {
	c := newTestController(t, Config{})

	c.EnableIRQ(EventForChannel(2) | 1<<AbortEvent)
	require.Equal(t, EventFlag(1<<2|1<<8), c.regs.inten.Load())
	c.DisableIRQ(EventForChannel(2))
	require.Equal(t, EventFlag(1<<8), c.regs.inten.Load())

	c.regs.intEventRis.Store(0x105)
	require.Equal(t, EventFlag(0x105), c.RawEvents())
	c.regs.intmis.Store(0x100)
	require.Equal(t, EventFlag(0x100), c.IRQFlags())

	c.ClearIRQ(EventForChannel(0))
	require.Equal(t, EventFlag(1), c.regs.intclr.Load())
}

func TestHardwareInit(t *testing.T) {
	rstBuf := make([]uint32, 64)
	defer runtime.KeepAlive(rstBuf)
	rst := rstmgr.At(unsafe.Pointer(&rstBuf[0]), hps.CycloneV)
	sysBuf := make([]uint32, 256)
	defer runtime.KeepAlive(sysBuf)
	sys := sysmgr.At(unsafe.Pointer(&sysBuf[0]), hps.CycloneV)

	cfg := Config{HW: &HWConfig{
		Rst: rst,
		Sys: sys,
		DMA: sysmgr.DMAConfig{
			Manager: sysmgr.NonSecure,
			Mux:     [4]sysmgr.MuxSelect{sysmgr.MuxCAN, sysmgr.MuxCAN},
		},
	}}
	c := newTestController(t, cfg)

	require.False(t, rst.DMAInReset())
	require.Equal(t, uint32(0x3|1<<4), sysBuf[0x70/4])

	require.NoError(t, c.Close())
	require.True(t, rst.DMAInReset())
}

func TestPeriphName(t *testing.T) {
	c := newTestController(t, Config{})
	require.Equal(t, "fpga4/can0_if1", PeriphFPGA4.Name(hps.CycloneV))
	require.Equal(t, "fpga4", PeriphFPGA4.Name(hps.Arria10))
	require.Equal(t, c.PeriphName(PeriphUART0TX), PeriphUART0TX.Name(hps.CycloneV))
}
