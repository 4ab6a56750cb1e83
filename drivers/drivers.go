// Package drivers defines the capability interfaces implemented by the HPS
// peripheral drivers.
//
// Each interface models one hardware capability, not one peripheral: a
// driver implements whichever subset its hardware provides and callers
// depend on the capability alone. The dma package deliberately depends on
// none of these, it moves bytes for any of them.
package drivers

import "io"

// GPIO is a bank of general purpose pins.
type GPIO interface {
	// SetDirection configures pin as an output or input.
	SetDirection(pin uint, output bool) error
	Set(pin uint, high bool) error
	Get(pin uint) (bool, error)
}

// UART is a byte stream peripheral. Writes block while the transmit FIFO is
// full, reads return only the bytes already received.
type UART interface {
	io.ReadWriter
}

// I2C is a bus master on a two wire bus.
type I2C interface {
	// Tx addresses the slave addr, writes w and then reads len(r) bytes.
	// Either slice may be empty.
	Tx(addr uint16, w, r []byte) error
}

// SPI is a bus master on a serial peripheral bus. Transfer shifts out w
// while shifting in len(w) bytes to r, both slices must be the same length.
type SPI interface {
	Transfer(w, r []byte) error
}
