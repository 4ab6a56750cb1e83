package dma

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Inst is one decoded DMA-330 instruction. Only the operand fields the
// mnemonic carries are meaningful, the rest stay zero.
type Inst struct {
	Mnemonic string
	Size     int // encoded length in bytes

	Cond       Cond
	Reg        Reg     // DMAMOV
	AddrReg    AddrReg // DMAADDH, DMAADNH
	Channel    int     // DMAGO
	Event      int     // DMASEV, DMAWFE
	Periph     PeriphID
	Imm        uint32 // 32 bit immediate, DMAADDH/DMAADNH use the low half
	Iterations int    // DMALP
	Jump       int    // DMALPEND, backwards jump in bytes
	Counter    int    // DMALP, DMALPEND
	NonSecure  bool   // DMAGO
	Invalidate bool   // DMAWFE
	Forever    bool   // DMALPEND closing a DMALPFE loop
}

func condSuffix(bits byte) (Cond, string, bool) {
	switch bits {
	case 0x0:
		return Always, "", true
	case 0x1:
		return Single, "S", true
	case 0x3:
		return Burst, "B", true
	}
	return Always, "", false
}

// Decode parses the first instruction in b. It fails with
// ErrInvalidProgram on an unknown opcode and ErrNoSpace when b ends in the
// middle of an instruction.
func Decode(b []byte) (Inst, error) {
	if len(b) == 0 {
		return Inst{}, ErrNoSpace
	}
	op := b[0]
	in := Inst{Size: 1}
	switch op {
	case opEnd:
		in.Mnemonic = "DMAEND"
		return in, nil
	case opKill:
		in.Mnemonic = "DMAKILL"
		return in, nil
	case opStz:
		in.Mnemonic = "DMASTZ"
		return in, nil
	case opRmb:
		in.Mnemonic = "DMARMB"
		return in, nil
	case opWmb:
		in.Mnemonic = "DMAWMB"
		return in, nil
	case opNop:
		in.Mnemonic = "DMANOP"
		return in, nil
	}
	if op&^0x03 == opLd || op&^0x03 == opSt {
		c, suffix, ok := condSuffix(op & 0x03)
		if !ok {
			return Inst{}, ErrInvalidProgram
		}
		in.Cond = c
		if op&^0x03 == opLd {
			in.Mnemonic = "DMALD" + suffix
		} else {
			in.Mnemonic = "DMAST" + suffix
		}
		return in, nil
	}
	switch op &^ 0x02 {
	case opAddh, opAdnh:
		if len(b) < 3 {
			return Inst{}, ErrNoSpace
		}
		in.Size = 3
		in.AddrReg = AddrReg(op >> 1 & 1)
		in.Imm = uint32(binary.LittleEndian.Uint16(b[1:]))
		if op&^0x02 == opAddh {
			in.Mnemonic = "DMAADDH"
		} else {
			in.Mnemonic = "DMAADNH"
		}
		return in, nil
	case opGo:
		if len(b) < 6 {
			return Inst{}, ErrNoSpace
		}
		in.Size = 6
		in.Mnemonic = "DMAGO"
		in.NonSecure = op&0x02 != 0
		in.Channel = int(b[1] & 0x07)
		in.Imm = binary.LittleEndian.Uint32(b[2:])
		return in, nil
	}
	if op == opMov {
		if len(b) < 6 {
			return Inst{}, ErrNoSpace
		}
		rd := Reg(b[1])
		if rd > DAR {
			return Inst{}, ErrInvalidProgram
		}
		in.Size = 6
		in.Mnemonic = "DMAMOV"
		in.Reg = rd
		in.Imm = binary.LittleEndian.Uint32(b[2:])
		return in, nil
	}

	// All remaining encodings are 2 bytes.
	if len(b) < 2 {
		return Inst{}, ErrNoSpace
	}
	in.Size = 2
	switch op {
	case opSev, opWfe:
		in.Event = int(b[1] >> 3)
		if op == opSev {
			in.Mnemonic = "DMASEV"
		} else {
			in.Mnemonic = "DMAWFE"
			in.Invalidate = b[1]&0x02 != 0
		}
		return in, nil
	case opFlushp:
		in.Mnemonic = "DMAFLUSHP"
		in.Periph = PeriphID(b[1] >> 3)
		return in, nil
	case opWfp, opWfp | 0x1, opWfp | 0x2:
		in.Mnemonic = "DMAWFP"
		in.Periph = PeriphID(b[1] >> 3)
		switch op & 0x3 {
		case 0x1:
			in.Cond = Always // request type driven by the peripheral
		case 0x2:
			in.Cond = Burst
		default:
			in.Cond = Single
		}
		return in, nil
	}
	switch op &^ 0x02 {
	case opLp:
		in.Mnemonic = "DMALP"
		in.Counter = int(op >> 1 & 1)
		in.Iterations = int(b[1]) + 1
		return in, nil
	case opLdp, opStp:
		in.Periph = PeriphID(b[1] >> 3)
		suffix := "S"
		in.Cond = Single
		if op&0x02 != 0 {
			suffix = "B"
			in.Cond = Burst
		}
		if op&^0x02 == opLdp {
			in.Mnemonic = "DMALDP" + suffix
		} else {
			in.Mnemonic = "DMASTP" + suffix
		}
		return in, nil
	}
	if op&^0x17 == opLpEnd {
		c, _, ok := condSuffix(op & 0x03)
		if !ok {
			return Inst{}, ErrInvalidProgram
		}
		in.Mnemonic = "DMALPEND"
		in.Cond = c
		in.Counter = int(op >> 2 & 1)
		in.Jump = int(b[1])
		in.Forever = op&opLpEndNF == 0
		return in, nil
	}
	return Inst{}, ErrInvalidProgram
}

// String returns the instruction in the TRM's assembly notation.
func (in Inst) String() string {
	switch in.Mnemonic {
	case "DMAMOV":
		reg := [...]string{"SAR", "CCR", "DAR"}[in.Reg]
		return fmt.Sprintf("%s %s, 0x%08x", in.Mnemonic, reg, in.Imm)
	case "DMAADDH", "DMAADNH":
		reg := [...]string{"SAR", "DAR"}[in.AddrReg]
		return fmt.Sprintf("%s %s, 0x%04x", in.Mnemonic, reg, in.Imm)
	case "DMAGO":
		ns := ""
		if in.NonSecure {
			ns = " (ns)"
		}
		return fmt.Sprintf("%s C%d, 0x%08x%s", in.Mnemonic, in.Channel, in.Imm, ns)
	case "DMALP":
		return fmt.Sprintf("%s LC%d, %d", in.Mnemonic, in.Counter, in.Iterations)
	case "DMALPEND":
		return fmt.Sprintf("%s LC%d, -%d", in.Mnemonic, in.Counter, in.Jump)
	case "DMASEV":
		return fmt.Sprintf("%s E%d", in.Mnemonic, in.Event)
	case "DMAWFE":
		if in.Invalidate {
			return fmt.Sprintf("%s E%d, invalid", in.Mnemonic, in.Event)
		}
		return fmt.Sprintf("%s E%d", in.Mnemonic, in.Event)
	case "DMAFLUSHP", "DMAWFP", "DMALDPS", "DMALDPB", "DMASTPS", "DMASTPB":
		return fmt.Sprintf("%s P%d", in.Mnemonic, in.Periph)
	}
	return in.Mnemonic
}

// Disassemble writes prog to w in assembly notation, one instruction per
// line prefixed with its byte offset.
func Disassemble(w io.Writer, prog []byte) error {
	for off := 0; off < len(prog); {
		in, err := Decode(prog[off:])
		if err != nil {
			return fmt.Errorf("dma: offset %#x: %w", off, err)
		}
		if _, err := fmt.Fprintf(w, "%#04x:\t%s\n", off, in); err != nil {
			return err
		}
		off += in.Size
	}
	return nil
}
