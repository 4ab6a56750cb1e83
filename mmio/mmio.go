// Package mmio provides volatile register cells for memory mapped IO.
//
// Peripheral register blocks are described as Go structs of mmio cells and
// overlaid at the peripheral's base address via unsafe.Pointer. All accesses
// go through sync/atomic, which keeps the compiler from caching, tearing or
// eliding them. This also allows a test to back a register block with plain
// memory and observe every access the driver makes.
package mmio

import (
	"sync/atomic"
	"unsafe"
)

// T32 is the constraint for typed 32 bit registers.
type T32 interface {
	~uint32
}

// U32 is a 32 bit register cell.
type U32 struct {
	r uint32
}

func (r *U32) Load() uint32   { return atomic.LoadUint32(&r.r) }
func (r *U32) Store(v uint32) { atomic.StoreUint32(&r.r, v) }
func (r *U32) Addr() uintptr  { return uintptr(unsafe.Pointer(&r.r)) }

// SetBits sets all bits in mask, leaving the rest unchanged.
func (r *U32) SetBits(mask uint32) { r.Store(r.Load() | mask) }

// ClearBits clears all bits in mask, leaving the rest unchanged.
func (r *U32) ClearBits(mask uint32) { r.Store(r.Load() &^ mask) }

// LoadBits returns the register masked with mask.
func (r *U32) LoadBits(mask uint32) uint32 { return r.Load() & mask }

// StoreBits replaces the bits in mask with the corresponding bits of bits.
func (r *U32) StoreBits(mask, bits uint32) {
	r.Store(r.Load()&^mask | bits&mask)
}

// R32 is a 32 bit register cell with a typed bit layout.
type R32[T T32] struct {
	r uint32
}

func (r *R32[T]) Load() T       { return T(atomic.LoadUint32(&r.r)) }
func (r *R32[T]) Store(v T)     { atomic.StoreUint32(&r.r, uint32(v)) }
func (r *R32[T]) Addr() uintptr { return uintptr(unsafe.Pointer(&r.r)) }

func (r *R32[T]) SetBits(mask T)    { r.Store(r.Load() | mask) }
func (r *R32[T]) ClearBits(mask T)  { r.Store(r.Load() &^ mask) }
func (r *R32[T]) LoadBits(mask T) T { return r.Load() & mask }
func (r *R32[T]) StoreBits(mask, bits T) {
	r.Store(r.Load()&^mask | bits&mask)
}

// U8 is an 8 bit register cell.
type U8 struct {
	r uint32 // 8 bit peripherals on the HPS are word addressed
}

func (r *U8) Load() uint8   { return uint8(atomic.LoadUint32(&r.r)) }
func (r *U8) Store(v uint8) { atomic.StoreUint32(&r.r, uint32(v)) }
func (r *U8) Addr() uintptr { return uintptr(unsafe.Pointer(&r.r)) }
