package dma

// State is the driver's model of one channel thread's lifecycle:
//
//	Free -> Ready -> Busy -> Done | Error | Aborted -> Free
//
// Transitions into the terminal states are discovered by polling the
// hardware status registers, transitions back to Free happen when the
// terminal state is acknowledged, see [Controller.CompletedChannel],
// [Controller.AbortedChannel] and [Controller.CheckState].
type State uint8

const (
	Free State = iota
	Ready
	Busy
	Done
	Error
	Aborted
)

func (s State) String() string {
	switch s {
	case Free:
		return "free"
	case Ready:
		return "ready"
	case Busy:
		return "busy"
	case Done:
		return "done"
	case Error:
		return "error"
	case Aborted:
		return "aborted"
	}
	return "invalid"
}

type channel struct {
	state    State
	prog     *Program
	fault    Fault
	aborting bool
}

// release acknowledges a terminal state. The pending program is dropped
// exactly once, on this transition.
func (st *channel) release() {
	st.prog = nil
	st.state = Free
	st.aborting = false
}

func (c *Controller) checkChannel(ch int) error {
	if ch < 0 || ch >= NumChannels {
		return ErrOutOfRange
	}
	return nil
}

// refresh reconciles the hardware reported status of channel ch into the
// driver's model. The fault registers are re-read on every call, faults
// appear asynchronously between polls and must not be served from a stale
// cache.
func (c *Controller) refresh(ch int) {
	st := &c.ch[ch]
	if st.state != Busy {
		return
	}
	csr := c.regs.chstat[ch].csr.Load()
	if csr.faulting() || c.regs.fsrc.Load()&(1<<ch) != 0 {
		st.fault = c.regs.ftr[ch].Load()
		st.state = Error
		return
	}
	if csr.state() == threadStopped {
		if st.aborting {
			st.state = Aborted
		} else {
			st.state = Done
		}
	}
}

func (c *Controller) refreshAll() {
	c.mgrFault = c.regs.ftrd.Load()
	for ch := 0; ch < NumChannels; ch++ {
		c.refresh(ch)
	}
}

// attach stores a validated program for channel ch and readies it.
func (c *Controller) attach(ch int, p *Program) error {
	if err := c.checkChannel(ch); err != nil {
		return err
	}
	c.refresh(ch)
	st := &c.ch[ch]
	switch st.state {
	case Free:
	case Ready:
		return ErrInUse
	default: // Busy or an unacknowledged terminal state
		return ErrBusy
	}
	st.prog = p
	st.fault = 0
	st.state = Ready
	return nil
}

// CheckState refreshes and returns the state of channel ch. Observing Error
// acknowledges it: the faulted thread is killed, the channel returns to
// Free and the fault stays retrievable through [Controller.LastFault] until
// the channel is set up again.
func (c *Controller) CheckState(ch int) (State, error) {
	if err := c.checkChannel(ch); err != nil {
		return Free, err
	}
	c.mgrFault = c.regs.ftrd.Load()
	c.refresh(ch)
	st := &c.ch[ch]
	s := st.state
	if s == Error {
		if err := c.dbgKill(ch); err != nil {
			// Debug port occupied, the fault stays latched for the
			// caller's retry.
			return s, err
		}
		st.release()
	}
	return s, nil
}

// LastFault returns the fault bits latched when channel ch most recently
// entered the Error state.
func (c *Controller) LastFault(ch int) (Fault, error) {
	if err := c.checkChannel(ch); err != nil {
		return 0, err
	}
	return c.ch[ch].fault, nil
}

// ManagerFault returns the manager thread's fault bits as of the last state
// check.
func (c *Controller) ManagerFault() Fault {
	return c.mgrFault
}
