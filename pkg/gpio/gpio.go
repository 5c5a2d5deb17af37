// Package gpio provides the register-level output interface the matrix
// refresh engine drives, together with three implementations: a /dev/mem
// register poker for Raspberry Pi class hardware, a character-device
// backend for bring-up on any Linux host, and an in-memory simulator.
//
// Pin state is modeled as one or two 32-bit words. Word 0 covers GPIOs
// 0-31; word 1 covers GPIOs 32 and up, used when a panel chain layout
// needs more pins than one register holds.
package gpio

// IO is an atomic bit-vector output port. All writes affect only pins
// previously declared through InitOutputs0/InitOutputs1; writing
// undeclared bits is a caller bug and implementations may mask them off.
type IO interface {
	// InitOutputs0 declares word-0 pins as outputs and returns the subset
	// the hardware actually supports. Callers compare against the request.
	InitOutputs0(mask uint32) uint32
	// InitOutputs1 is InitOutputs0 for the second pin word.
	InitOutputs1(mask uint32) uint32
	// WriteMaskedBits sets the pins under each mask to the corresponding
	// bits of each value, leaving all other pins untouched.
	WriteMaskedBits(value0, mask0, value1, mask1 uint32)
	// SetBits drives the given pins high.
	SetBits(bits0, bits1 uint32)
	// ClearBits drives the given pins low.
	ClearBits(bits0, bits1 uint32)
}
