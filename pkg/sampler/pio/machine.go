package pio

import (
	"github.com/robotalks/cpudbg/pkg/bus"
)

// Machine is the receive state machine. It is stepped once per bus
// snapshot and never blocks: every wait is a state that re-evaluates the
// next snapshot.
type Machine struct {
	state machineState
	isr   byte
	x     int
}

type machineState int

const (
	stateWaitSelect machineState = iota // wait CS low
	stateWaitClkHigh                    // jmp pin (CS high) start; wait CLK high
	stateWaitClkLow                     // wait CLK low
)

// StepResult indicates the result of one step.
type StepResult struct {
	// Pushed is set when a byte is completed, which raises the interrupt.
	Pushed bool
	// Value is the completed byte when Pushed.
	Value byte
	// Marker is CD sampled with the completing snapshot.
	Marker bool
	// Abandoned is set when CS deasserted while a byte was in progress.
	Abandoned bool
	// Bits is the number of bits dropped when Abandoned.
	Bits int
}

// Selected indicates whether the machine is inside a CS assertion.
func (m *Machine) Selected() bool {
	return m.state != stateWaitSelect
}

// Reset returns to waiting for CS.
func (m *Machine) Reset() {
	m.state, m.isr, m.x = stateWaitSelect, 0, 0
}

// Step consumes one snapshot.
func (m *Machine) Step(s bus.LineState) (r StepResult) {
	switch m.state {
	case stateWaitSelect:
		if s.Selected() {
			m.isr, m.x = 0, 7
			m.state = stateWaitClkHigh
		}
	case stateWaitClkHigh:
		if !s.Selected() {
			return m.restart()
		}
		if s.CLK {
			m.isr <<= 1
			if s.CODI {
				m.isr |= 1
			}
			m.state = stateWaitClkLow
		}
	case stateWaitClkLow:
		if !s.Selected() {
			if m.x == 0 {
				// last bit already sampled, CS may rise before CLK falls.
				r = m.push(s)
				m.state = stateWaitSelect
				return
			}
			return m.restart()
		}
		if s.CLK {
			return
		}
		if m.x > 0 {
			m.x--
			m.state = stateWaitClkHigh
			return
		}
		r = m.push(s)
		m.x = 7
		m.state = stateWaitClkHigh
	}
	return
}

func (m *Machine) push(s bus.LineState) StepResult {
	r := StepResult{Pushed: true, Value: m.isr, Marker: s.CD}
	m.isr = 0
	return r
}

func (m *Machine) restart() (r StepResult) {
	// bits collected = 7-x, plus the one being waited on in WaitClkLow
	bits := 7 - m.x
	if m.state == stateWaitClkLow {
		bits++
	}
	if bits > 0 {
		r.Abandoned, r.Bits = true, bits
	}
	m.Reset()
	return
}
