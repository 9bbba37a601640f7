// Package sampler extracts bytes from the debug bus.
package sampler

import (
	"context"
	"errors"
)

// ByteSink receives every completed byte with the frame-marker level
// sampled at its completion.
type ByteSink interface {
	HandleByte(b byte, marker bool)
}

// HandleByteFunc is func form of ByteSink.
type HandleByteFunc func(b byte, marker bool)

// HandleByte implements ByteSink.
func (f HandleByteFunc) HandleByte(b byte, marker bool) {
	f(b, marker)
}

// Source is a bit/byte source realization. Run samples the bus until ctx
// is done, handing completed bytes to sink.
type Source interface {
	Run(ctx context.Context, sink ByteSink) error
}

var (
	// ErrTimeout indicates the bus clock stopped in the middle of a byte.
	ErrTimeout = errors.New("bus clock timeout")
	// ErrDeselected indicates CS was deasserted in the middle of a byte.
	ErrDeselected = errors.New("deselected")
)

// Assembler packs bits MSB first into a byte.
type Assembler struct {
	acc  byte
	bits int
}

// Shift shifts in one bit. When the 8th bit arrives the completed byte is
// returned with done set, and the assembler starts over.
func (a *Assembler) Shift(bit bool) (b byte, done bool) {
	a.acc <<= 1
	if bit {
		a.acc |= 1
	}
	if a.bits++; a.bits < 8 {
		return 0, false
	}
	b, a.acc, a.bits = a.acc, 0, 0
	return b, true
}

// Reset abandons the bits collected so far.
func (a *Assembler) Reset() {
	a.acc, a.bits = 0, 0
}

// Pending returns the number of bits collected for the current byte.
func (a *Assembler) Pending() int {
	return a.bits
}
