package dma

import "strings"

// Fault is the bitmask latched by the controller's fault type registers
// when a thread aborts. Channel and manager threads share most bit
// positions.
type Fault uint32

const (
	FaultUndefInstr    Fault = 1 << 0  // undefined instruction
	FaultOperandErr    Fault = 1 << 1  // invalid operand
	FaultGoSecurityErr Fault = 1 << 4  // DMAGO violated security, manager only
	FaultEventErr      Fault = 1 << 5  // event security violation
	FaultPeriphErr     Fault = 1 << 6  // peripheral request security violation
	FaultRdWrErr       Fault = 1 << 7  // load/store security violation
	FaultMFIFOErr      Fault = 1 << 12 // burst exceeds MFIFO depth
	FaultStUnavailable Fault = 1 << 13 // store lacks data in the MFIFO
	FaultInstrFetch    Fault = 1 << 16 // instruction fetch AXI error
	FaultDataWrite     Fault = 1 << 17 // data write AXI error
	FaultDataRead      Fault = 1 << 18 // data read AXI error
	FaultDbgInstr      Fault = 1 << 30 // fault raised by a debug instruction
	FaultLockup        Fault = 1 << 31 // watchdog lockup
)

var faultNames = []struct {
	bit  Fault
	name string
}{
	{FaultUndefInstr, "undef instr"},
	{FaultOperandErr, "operand"},
	{FaultGoSecurityErr, "dmago security"},
	{FaultEventErr, "event security"},
	{FaultPeriphErr, "periph security"},
	{FaultRdWrErr, "rdwr security"},
	{FaultMFIFOErr, "mfifo depth"},
	{FaultStUnavailable, "store data unavailable"},
	{FaultInstrFetch, "instr fetch"},
	{FaultDataWrite, "data write"},
	{FaultDataRead, "data read"},
	{FaultDbgInstr, "debug instr"},
	{FaultLockup, "lockup"},
}

func (f Fault) String() string {
	if f == 0 {
		return "none"
	}
	var b strings.Builder
	for _, n := range faultNames {
		if f&n.bit == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('+')
		}
		b.WriteString(n.name)
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
