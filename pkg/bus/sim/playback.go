package sim

import (
	"sync"

	"github.com/robotalks/cpudbg/pkg/bus"
)

// Playback replays a recorded waveform deterministically. Time is driven by
// the reader: every Sample call, and every read of a timing line (CLK or CS)
// through Lines, advances one sample. Reads of data lines (CODI, CIDO, CD)
// observe the current sample without advancing.
// Past the end, the last state is held and Done reports true.
type Playback struct {
	states []bus.LineState
	pos    int
	lock   sync.Mutex
}

// NewPlayback creates a Playback from states.
func NewPlayback(states ...[]bus.LineState) *Playback {
	p := &Playback{}
	for _, s := range states {
		p.states = append(p.states, s...)
	}
	if len(p.states) == 0 {
		p.states = []bus.LineState{{CS: true}}
	}
	return p
}

// Sample implements bus.Sampler.
func (p *Playback) Sample() bus.LineState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.advance()
}

// Done indicates the whole waveform has been consumed.
func (p *Playback) Done() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.pos >= len(p.states)
}

// Lines exposes the playback as individual lines.
func (p *Playback) Lines() *bus.Lines {
	return &bus.Lines{
		CLK:  bus.ReadFunc(func() bool { return p.tick().CLK }),
		CS:   bus.ReadFunc(func() bool { return p.tick().CS }),
		CODI: bus.ReadFunc(func() bool { return p.current().CODI }),
		CIDO: bus.ReadFunc(func() bool { return p.current().CIDO }),
		CD:   bus.ReadFunc(func() bool { return p.current().CD }),
	}
}

func (p *Playback) tick() bus.LineState {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.advance()
}

func (p *Playback) current() bus.LineState {
	p.lock.Lock()
	defer p.lock.Unlock()
	pos := p.pos - 1
	if pos < 0 {
		pos = 0
	}
	if pos >= len(p.states) {
		pos = len(p.states) - 1
	}
	return p.states[pos]
}

func (p *Playback) advance() bus.LineState {
	if p.pos >= len(p.states) {
		return p.states[len(p.states)-1]
	}
	s := p.states[p.pos]
	p.pos++
	return s
}
