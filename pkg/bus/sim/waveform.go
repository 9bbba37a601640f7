package sim

import (
	"github.com/robotalks/cpudbg/pkg/bus"
)

// Word is one byte transfer with its frame-marker level.
type Word struct {
	Value  byte
	Marker bool
}

// FrameWords converts an encoded frame into Words, marking the first byte.
func FrameWords(frame []byte) []Word {
	words := make([]Word, len(frame))
	for n, b := range frame {
		words[n] = Word{Value: b, Marker: n == 0}
	}
	return words
}

// Timing controls waveform synthesis, in samples.
type Timing struct {
	// HalfPeriod is the number of samples each clock level is held.
	HalfPeriod int
	// Gap is the number of idle samples (CS high) between transfers.
	Gap int
	// Continuous keeps CS asserted across all words of one Synthesize call.
	Continuous bool
}

// DefaultTiming is used when Timing is zero.
var DefaultTiming = Timing{HalfPeriod: 4, Gap: 4}

func (t Timing) normalize() Timing {
	if t.HalfPeriod <= 0 {
		t.HalfPeriod = DefaultTiming.HalfPeriod
	}
	if t.Gap <= 0 {
		t.Gap = DefaultTiming.Gap
	}
	return t
}

// Synthesize renders words into a sequence of line states as the
// CPU-under-test would drive them: data changes while CLK is low, the
// receiver samples on the rising edge. Every transfer starts and ends idle.
func Synthesize(t Timing, words ...Word) []bus.LineState {
	t = t.normalize()
	idle := bus.LineState{CS: true}
	states := repeat(nil, idle, t.Gap)
	for n, w := range words {
		if !t.Continuous && n > 0 {
			states = repeat(states, idle, t.Gap)
		}
		for bit := 7; bit >= 0; bit-- {
			s := bus.LineState{CODI: (w.Value>>uint(bit))&1 != 0, CD: w.Marker}
			states = repeat(states, s, t.HalfPeriod)
			s.CLK = true
			states = repeat(states, s, t.HalfPeriod)
		}
		states = repeat(states, bus.LineState{CD: w.Marker}, t.HalfPeriod)
	}
	return repeat(states, idle, t.Gap)
}

// Truncate cuts a transfer after the given number of clock pulses and
// deasserts CS, emulating an aborted transfer.
func Truncate(t Timing, w Word, pulses int) []bus.LineState {
	t = t.normalize()
	idle := bus.LineState{CS: true}
	states := repeat(nil, idle, t.Gap)
	for bit := 7; bit > 7-pulses && bit >= 0; bit-- {
		s := bus.LineState{CODI: (w.Value>>uint(bit))&1 != 0, CD: w.Marker}
		states = repeat(states, s, t.HalfPeriod)
		s.CLK = true
		states = repeat(states, s, t.HalfPeriod)
	}
	states = repeat(states, bus.LineState{CD: w.Marker}, t.HalfPeriod)
	return repeat(states, idle, t.Gap)
}

func repeat(states []bus.LineState, s bus.LineState, count int) []bus.LineState {
	for i := 0; i < count; i++ {
		states = append(states, s)
	}
	return states
}
