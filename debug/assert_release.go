//go:build !debug

// Package debug provides assertions that compile to no-ops unless the debug
// build tag is set.
//
// The register level code uses them to catch driver protocol violations,
// like a debug command issued while the port is busy, during bring-up
// without taxing release builds.
package debug

// Guard assertions that allocate or compute their condition with
// `if debug.Enabled {...}`, otherwise they can't be removed in release
// builds.
const Enabled = false

// Assert panics if b is false.
func Assert(b bool, message string) {}

// AssertErrNil panics if err is not nil.
func AssertErrNil(err error) {}
