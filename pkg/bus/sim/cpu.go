package sim

import (
	"math/rand"
	"sync"

	"github.com/robotalks/cpudbg/pkg/telemetry"
)

// CPU is a toy CPU-under-test producing plausible state records. Each
// NextFrame executes one instruction.
type CPU struct {
	state telemetry.Record
	rnd   *rand.Rand
	lock  sync.Mutex
}

// NewCPU creates a CPU in reset state. seed makes the run reproducible.
func NewCPU(seed int64) *CPU {
	c := &CPU{rnd: rand.New(rand.NewSource(seed))}
	c.state.IP = 0x00001000
	c.state.SP = 0x0000ff00
	c.state.BP = c.state.SP
	return c
}

// State returns the state after the last executed instruction.
func (c *CPU) State() telemetry.Record {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Step executes one instruction and returns the resulting state.
func (c *CPU) Step() telemetry.Record {
	c.lock.Lock()
	defer c.lock.Unlock()
	s := &c.state
	s.OOP = uint8(c.rnd.Intn(0x100))
	s.COP = uint8(c.rnd.Intn(0x40))
	s.RIM = uint8(c.rnd.Intn(0x100))
	s.BIO = uint8(c.rnd.Intn(0x100))
	s.EI8 = uint8(c.rnd.Intn(0x100))
	s.IMM = c.rnd.Uint32()
	size := uint32(1 + c.rnd.Intn(6))

	regs := []*uint16{&s.A, &s.B, &s.C, &s.D, &s.I, &s.J, &s.K, &s.L}
	dst := regs[s.RIM&7]
	switch s.COP & 3 {
	case 0:
		*dst = uint16(s.IMM)
	case 1:
		*dst += *regs[(s.RIM>>3)&7]
	case 2:
		s.SP -= 2
	case 3:
		s.SP += 2
	}
	s.PF = s.F
	s.F = 0
	if *dst == 0 {
		s.F |= 1
	}
	if *dst&0x8000 != 0 {
		s.F |= 2
	}
	if s.OOP&0xf0 == 0xf0 {
		// jump
		s.IP = 0x00001000 + uint32(s.IMM&0x0fff)
	} else {
		s.IP += size
	}
	s.ICount++
	clocks := uint32(2 + c.rnd.Intn(4))
	s.ECount += clocks
	s.MCount += clocks + size
	return *s
}

// NextFrame implements FrameSource.
func (c *CPU) NextFrame() []byte {
	r := c.Step()
	data, _ := r.MarshalBinary()
	return data
}
