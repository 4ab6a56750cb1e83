package dma

import "github.com/de1soc/hps"

// A Chunk is a single transfer request: copy Len bytes from Read to Write.
// Params optionally overrides the controller's default transfer parameters.
// Last marks the final chunk of a chained request.
type Chunk struct {
	Read  hps.Addr
	Write hps.Addr
	Len   uint32
	Last  bool

	Params *ChannelParams
}

// phase is one homogeneous piece of a synthesized program: a control word
// update followed by up to one load and any number of stores.
type phase struct {
	srcSize, srcLen uint32 // beat size in bytes, beats per burst
	dstSize, dstLen uint32
	load, store     bool
}

// emitPhase appends the control word move and the load/store pair of one
// phase. A side that is not used by the phase is encoded with a minimal
// valid geometry, the engine ignores it.
func emitPhase(p *Program, par *ChannelParams, ph phase) error {
	if !ph.load || ph.srcLen == 0 {
		ph.srcSize, ph.srcLen = 1, 1
	}
	if !ph.store || ph.dstLen == 0 {
		ph.dstSize, ph.dstLen = 1, 1
	}
	if err := p.Mov(CCR, par.ctrlWord(ph.srcSize, ph.srcLen, ph.dstSize, ph.dstLen)); err != nil {
		return err
	}
	if ph.load {
		if err := p.Load(Always); err != nil {
			return err
		}
	}
	if ph.store {
		if par.SrcType == TargetZero {
			return p.StoreZero()
		}
		return p.Store(Always)
	}
	return nil
}

// synthesize builds the instruction program carrying out chunk with the
// given parameters on channel ch.
//
// The engine's burst mechanism advances source and destination in lockstep
// word sized beats, but the requested addresses are arbitrary byte offsets
// that need not share alignment with each other or with the configured
// burst width. The program therefore runs in up to three phases: a byte
// granular prefix that word-aligns the source, a bulk phase of word bursts,
// and a byte granular suffix for the leftovers. Skew between source and
// destination alignment makes the store stream lag the load stream, the lag
// drains through the engine's FIFO into the final stores.
func synthesize(p *Program, chunk *Chunk, par *ChannelParams, ch int) error {
	if err := par.validate(); err != nil {
		return err
	}
	length := chunk.Len
	read, write := uint32(chunk.Read), uint32(chunk.Write)
	word := par.BurstWidth

	par.plan = burstPlan{
		srcInc: par.SrcType != TargetRegister,
		dstInc: par.DstType != TargetRegister,
	}

	zero := par.SrcType == TargetZero
	if zero {
		// A fictitious source address keeps the skew arithmetic below
		// in lockstep with the destination.
		read = write
	}

	if length == 0 {
		return p.End()
	}

	// Bytes needed to advance each side to the next word boundary.
	readInitial := min(-read&(word-1), length)
	writeInitial := min(-write&(word-1), length)
	if par.strictAlignment() && (readInitial != 0 || writeInitial != 0 || length%word != 0) {
		// Register endpoints and endian swapping transfer whole words
		// only, they cannot self-correct skew.
		return ErrAlignment
	}
	par.plan.readInitial = readInitial
	par.plan.writeInitial = writeInitial

	if !zero {
		if err := p.Mov(SAR, read); err != nil {
			return err
		}
	}
	if err := p.Mov(DAR, write); err != nil {
		return err
	}

	readRemain, writeRemain := length, length

	// Byte granular prefix: word-align the source. The destination's own
	// alignment need is satisfied along the way if the prefix load
	// covers it, otherwise its stores lag until the suffix.
	if readInitial != 0 {
		storeLen := uint32(0)
		if writeInitial != 0 && writeInitial <= readInitial {
			storeLen = writeInitial
		}
		err := emitPhase(p, par, phase{
			srcSize: 1, srcLen: readInitial,
			dstSize: 1, dstLen: storeLen,
			load: !zero, store: storeLen != 0,
		})
		if err != nil {
			return err
		}
		readRemain -= readInitial
		writeRemain -= storeLen
	}

	// Bulk phase: whole words, split into full bursts and a partial
	// remainder burst, the full bursts chunked to the loop counter's
	// iteration limit.
	words := readRemain / word
	par.plan.words = words
	fullBursts := words / maxBurstLen
	tailBeats := words % maxBurstLen
	for fullBursts > 0 {
		n := min(fullBursts, maxLoopIter)
		if err := emitBurst(p, par, word, maxBurstLen, n, zero); err != nil {
			return err
		}
		fullBursts -= n
	}
	if tailBeats > 0 {
		if err := emitBurst(p, par, word, tailBeats, 1, zero); err != nil {
			return err
		}
	}
	readRemain -= words * word
	writeRemain -= words * word

	// Byte granular suffix for a length that is no whole number of
	// words, plus stores for whatever still lags the loads.
	par.plan.tail = readRemain
	if readRemain > 0 {
		storeLen := min(writeRemain, maxBurstLen)
		err := emitPhase(p, par, phase{
			srcSize: 1, srcLen: readRemain,
			dstSize: 1, dstLen: storeLen,
			load: !zero, store: storeLen != 0,
		})
		if err != nil {
			return err
		}
		writeRemain -= storeLen
	}
	for writeRemain > 0 {
		n := min(writeRemain, maxBurstLen)
		err := emitPhase(p, par, phase{dstSize: 1, dstLen: n, store: true})
		if err != nil {
			return err
		}
		writeRemain -= n
	}

	if par.SrcType == TargetMemory && par.DstType == TargetMemory {
		if err := p.WriteBarrier(); err != nil {
			return err
		}
	}
	if par.Event {
		if err := p.SendEvent(ch); err != nil {
			return err
		}
	}
	return p.End()
}

// emitBurst appends one group of count bursts of beats word sized beats,
// wrapped in a loop if count > 1. With native bursting disabled the burst
// is in turn expressed as a loop of single beats.
func emitBurst(p *Program, par *ChannelParams, word, beats, count uint32, zero bool) error {
	// The outer loop must open before the inner one. Closing a loop
	// releases its counter, so opening them innermost first would encode
	// both DMALPs on the same counter and the inner loop would exhaust
	// it before the outer DMALPEND ever tests it.
	if count > 1 {
		if err := p.Loop(int(count)); err != nil {
			return err
		}
	}
	if par.Burst {
		err := emitPhase(p, par, phase{
			srcSize: word, srcLen: beats,
			dstSize: word, dstLen: beats,
			load: !zero, store: true,
		})
		if err != nil {
			return err
		}
	} else {
		if beats > 1 {
			if err := p.Loop(int(beats)); err != nil {
				return err
			}
		}
		err := emitPhase(p, par, phase{
			srcSize: word, srcLen: 1,
			dstSize: word, dstLen: 1,
			load: !zero, store: true,
		})
		if err != nil {
			return err
		}
		if beats > 1 {
			if err := p.LoopEnd(Always); err != nil {
				return err
			}
		}
	}
	if count > 1 {
		if err := p.LoopEnd(Always); err != nil {
			return err
		}
	}
	return nil
}
