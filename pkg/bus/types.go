package bus

import (
	"fmt"
	"time"
)

// Line is a monitored input signal.
type Line interface {
	// Read returns the instantaneous level, true is high.
	Read() bool
}

// EdgeWaiter is implemented by lines able to block until a level change.
type EdgeWaiter interface {
	// WaitForEdge blocks until an edge is detected or timeout expires.
	// A negative timeout waits forever.
	WaitForEdge(timeout time.Duration) bool
}

// Output is a driven signal, used by local peripherals (e.g. LEDs), never
// by the debug bus itself.
type Output interface {
	Set(level bool) error
}

// ReadFunc is func form of Line.
type ReadFunc func() bool

// Read implements Line.
func (f ReadFunc) Read() bool {
	return f()
}

// SetFunc is func form of Output.
type SetFunc func(bool) error

// Set implements Output.
func (f SetFunc) Set(level bool) error {
	return f(level)
}

// LineState is a snapshot of all bus lines at one instant.
type LineState struct {
	CLK  bool
	CODI bool
	CIDO bool
	CS   bool
	CD   bool
}

// Selected indicates CS is asserted (active low).
func (s LineState) Selected() bool {
	return !s.CS
}

// String implements fmt.Stringer.
func (s LineState) String() string {
	return fmt.Sprintf("CLK=%d CODI=%d CIDO=%d CS=%d CD=%d",
		b2i(s.CLK), b2i(s.CODI), b2i(s.CIDO), b2i(s.CS), b2i(s.CD))
}

// Sampler takes snapshots of the bus.
type Sampler interface {
	Sample() LineState
}

// Lines groups the bus lines.
type Lines struct {
	CLK  Line
	CODI Line
	CIDO Line
	CS   Line
	CD   Line
}

// Sample implements Sampler by reading each line in turn.
func (l *Lines) Sample() (s LineState) {
	s.CS = l.CS.Read()
	s.CLK = l.CLK.Read()
	s.CODI = l.CODI.Read()
	if l.CIDO != nil {
		s.CIDO = l.CIDO.Read()
	}
	s.CD = l.CD.Read()
	return
}

// Validate checks all required lines are present.
func (l *Lines) Validate() error {
	switch {
	case l.CLK == nil:
		return fmt.Errorf("line CLK missing")
	case l.CODI == nil:
		return fmt.Errorf("line CODI missing")
	case l.CS == nil:
		return fmt.Errorf("line CS missing")
	case l.CD == nil:
		return fmt.Errorf("line CD missing")
	}
	return nil
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
