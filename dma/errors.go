package dma

import (
	"errors"
	"fmt"
)

var (
	ErrNilPointer     = errors.New("dma: nil pointer")
	ErrNoSpace        = errors.New("dma: program buffer full")
	ErrInUse          = errors.New("dma: resource in use")
	ErrBusy           = errors.New("dma: busy")
	ErrNotReady       = errors.New("dma: not ready")
	ErrNotFound       = errors.New("dma: not found")
	ErrOutOfRange     = errors.New("dma: out of range")
	ErrAlignment      = errors.New("dma: bad alignment")
	ErrUnsupported    = errors.New("dma: unsupported mode")
	ErrInvalidProgram = errors.New("dma: invalid program")
)

// Skipped is returned by [Controller.Setup] when a short transfer was
// serviced by a plain CPU copy instead of the DMA engine. It signals
// completion, not failure, similar to [io.EOF].
var Skipped = errors.New("dma: completed by cpu copy")

// A FaultError reports a fault latched by the controller for a channel
// thread, or for the manager thread if Channel is negative.
type FaultError struct {
	Channel int
	Fault   Fault
}

func (e *FaultError) Error() string {
	if e.Channel < 0 {
		return fmt.Sprintf("dma: manager fault: %v", e.Fault)
	}
	return fmt.Sprintf("dma: channel %d fault: %v", e.Channel, e.Fault)
}
