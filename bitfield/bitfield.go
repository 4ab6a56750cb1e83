// Package bitfield provides helpers for packing and unpacking register bit
// fields. A field is described by its LSB offset and width in bits.
package bitfield

import "golang.org/x/exp/constraints"

// Mask returns the mask of a field, i.e. width ones shifted to offset.
func Mask[T constraints.Unsigned](offset, width uint) T {
	return (1<<width - 1) << offset
}

// Extract returns the value of a field in reg.
func Extract[T constraints.Unsigned](reg T, offset, width uint) T {
	return (reg >> offset) & (1<<width - 1)
}

// Insert returns val shifted and masked into an otherwise zero register.
func Insert[T constraints.Unsigned](val T, offset, width uint) T {
	return (val & (1<<width - 1)) << offset
}

// Modify returns reg with the field replaced by val.
func Modify[T constraints.Unsigned](reg, val T, offset, width uint) T {
	return reg&^Mask[T](offset, width) | Insert(val, offset, width)
}

// Fits reports whether val can be represented in width bits.
func Fits[T constraints.Unsigned](val T, width uint) bool {
	return val>>width == 0
}
