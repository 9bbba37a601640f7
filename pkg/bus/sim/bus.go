// Package sim simulates the CPU-under-test side of the debug bus.
package sim

import (
	"sync/atomic"

	"github.com/robotalks/cpudbg/pkg/bus"
)

// Signal is a settable line safe for concurrent use.
type Signal struct {
	level atomic.Bool
}

// Read implements bus.Line.
func (s *Signal) Read() bool {
	return s.level.Load()
}

// Set implements bus.Output.
func (s *Signal) Set(level bool) error {
	s.level.Store(level)
	return nil
}

// Bus is a set of simulated lines, driven by a Transmitter or directly by
// tests.
type Bus struct {
	CLK  Signal
	CODI Signal
	CIDO Signal
	CS   Signal
	CD   Signal
}

// NewBus creates a Bus in idle state: CS deasserted, clock low.
func NewBus() *Bus {
	b := &Bus{}
	b.CS.Set(true)
	return b
}

// Lines exposes the bus as bus.Lines.
func (b *Bus) Lines() *bus.Lines {
	return &bus.Lines{
		CLK:  &b.CLK,
		CODI: &b.CODI,
		CIDO: &b.CIDO,
		CS:   &b.CS,
		CD:   &b.CD,
	}
}

// Sample implements bus.Sampler.
func (b *Bus) Sample() bus.LineState {
	return bus.LineState{
		CLK:  b.CLK.Read(),
		CODI: b.CODI.Read(),
		CIDO: b.CIDO.Read(),
		CS:   b.CS.Read(),
		CD:   b.CD.Read(),
	}
}

// Apply drives all lines to the given state.
func (b *Bus) Apply(s bus.LineState) {
	// data only changes while the clock is low.
	if !s.CLK {
		b.CLK.Set(false)
	}
	b.CODI.Set(s.CODI)
	b.CIDO.Set(s.CIDO)
	b.CD.Set(s.CD)
	b.CS.Set(s.CS)
	if s.CLK {
		b.CLK.Set(true)
	}
}
