package dma

import (
	"encoding/binary"

	"github.com/de1soc/hps/debug"
)

// The controller accepts out of band commands (start a thread, kill a
// thread, inject an event) only through the debug port: a two word
// instruction register pair plus a trigger register, guarded by a busy flag.

// dbgExec serialises inst into the debug port and triggers its execution on
// the manager thread, or on a channel thread if thread >= 0. It fails with
// ErrBusy while the port still works on a previous command and does not
// wait for the instruction's effect, callers re-poll thread state instead.
func (c *Controller) dbgExec(thread int, inst []byte) error {
	debug.Assert(len(inst) >= 1 && len(inst) <= 6, "dma: debug instruction size")
	if c.regs.dbgstatus.Load()&dbgBusy != 0 {
		return ErrBusy
	}
	ins0 := uint32(inst[0]) << 16
	if len(inst) > 1 {
		ins0 |= uint32(inst[1]) << 24
	}
	if thread >= 0 {
		ins0 |= dbgThreadChannel | uint32(thread)<<8
	}
	var ins1 uint32
	if len(inst) > 2 {
		var word [4]byte
		copy(word[:], inst[2:])
		ins1 = binary.LittleEndian.Uint32(word[:])
	}
	c.regs.dbginst0.Store(ins0)
	c.regs.dbginst1.Store(ins1)
	c.regs.dbgcmd.Store(dbgExecute)
	return nil
}

// dbgGo bootstraps channel ch at the given program address via DMAGO.
func (c *Controller) dbgGo(ch int, addr uint32, nonsecure bool) error {
	c.dbg.Reset()
	if err := c.dbg.Go(ch, addr, nonsecure); err != nil {
		return err
	}
	return c.dbgExec(-1, c.dbg.Bytes())
}

// dbgKill terminates the thread of channel ch. Channels nobody set up have
// no thread to kill, the command is skipped for them.
func (c *Controller) dbgKill(ch int) error {
	if err := c.checkChannel(ch); err != nil {
		return err
	}
	if c.ch[ch].state == Free {
		return nil
	}
	c.dbg.Reset()
	if err := c.dbg.Kill(); err != nil {
		return err
	}
	return c.dbgExec(ch, c.dbg.Bytes())
}

// dbgKillManager terminates the manager thread.
func (c *Controller) dbgKillManager() error {
	c.dbg.Reset()
	if err := c.dbg.Kill(); err != nil {
		return err
	}
	return c.dbgExec(-1, c.dbg.Bytes())
}

// dbgSendEvent raises an event line from the manager thread. Unlike
// [Program.SendEvent] it may raise the reserved [AbortEvent].
func (c *Controller) dbgSendEvent(event int) error {
	if event < 0 || event >= NumEvents {
		return ErrOutOfRange
	}
	c.dbg.Reset()
	if err := c.dbg.event2(opSev, event, 0); err != nil {
		return err
	}
	return c.dbgExec(-1, c.dbg.Bytes())
}
