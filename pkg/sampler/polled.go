package sampler

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/bus"
	"github.com/robotalks/cpudbg/pkg/indicator"
)

// DefaultBitTimeout bounds the wait for a single clock level.
const DefaultBitTimeout = 100 * time.Millisecond

// spinMask sets how often a spin loop checks its deadline and context and
// yields the processor.
const spinMask = 0x3ff

// Polled is the software bit-banging realization. It spins on the lines
// and reads one bit per rising CLK edge after a CS falling edge.
type Polled struct {
	Lines *bus.Lines
	// BitTimeout bounds every clock wait inside a byte.
	BitTimeout time.Duration
	// SelectPoll is the poll interval while waiting for CS on lines
	// supporting edge waits.
	SelectPoll time.Duration
	// Activity optionally mirrors every completed byte.
	Activity indicator.Indicator

	asm   Assembler
	stats Stats
}

// Stats are counters of a Source.
type Stats struct {
	Bytes     uint64 `json:"bytes"`
	Abandoned uint64 `json:"abandoned"`
	Timeouts  uint64 `json:"timeouts"`
	Overruns  uint64 `json:"overruns"`
}

// NewPolled creates a Polled source on lines.
func NewPolled(lines *bus.Lines) *Polled {
	return &Polled{
		Lines:      lines,
		BitTimeout: DefaultBitTimeout,
		SelectPoll: 10 * time.Millisecond,
	}
}

// Name implements framework.Named.
func (p *Polled) Name() string {
	return "sampler-polled"
}

// Stats returns a snapshot of counters.
func (p *Polled) Stats() Stats {
	return Stats{
		Bytes:     atomic.LoadUint64(&p.stats.Bytes),
		Abandoned: atomic.LoadUint64(&p.stats.Abandoned),
		Timeouts:  atomic.LoadUint64(&p.stats.Timeouts),
	}
}

// Run implements Source.
func (p *Polled) Run(ctx context.Context, sink ByteSink) error {
	if err := p.Lines.Validate(); err != nil {
		return err
	}
	for {
		if err := p.waitSelect(ctx); err != nil {
			return err
		}
		if err := p.readSelected(ctx, sink); err != nil {
			return err
		}
	}
}

// waitSelect waits for a CS falling edge. CS must be seen high first so a
// transfer already in progress is never joined mid-byte.
func (p *Polled) waitSelect(ctx context.Context) error {
	for _, level := range []bool{true, false} {
		for n := 0; p.Lines.CS.Read() != level; n++ {
			if ew, ok := p.Lines.CS.(bus.EdgeWaiter); ok {
				ew.WaitForEdge(p.SelectPoll)
				if err := ctx.Err(); err != nil {
					return err
				}
				continue
			}
			if n&spinMask == spinMask {
				if err := ctx.Err(); err != nil {
					return err
				}
				runtime.Gosched()
			}
		}
	}
	return nil
}

// readSelected reads bytes for as long as CS stays low.
func (p *Polled) readSelected(ctx context.Context, sink ByteSink) error {
	for {
		b, done, err := p.readByte(ctx)
		if done {
			marker := p.Lines.CD.Read()
			atomic.AddUint64(&p.stats.Bytes, 1)
			sink.HandleByte(b, marker)
			if a := p.Activity; a != nil {
				a.Show(b)
			}
		}
		switch err {
		case nil:
			continue
		case ErrDeselected:
			if pending := p.asm.Pending(); pending > 0 {
				atomic.AddUint64(&p.stats.Abandoned, 1)
				glog.V(2).Infof("polled: deselected after %d bits, byte abandoned", pending)
			}
		case ErrTimeout:
			atomic.AddUint64(&p.stats.Timeouts, 1)
			if done {
				glog.V(2).Info("polled: clock held high after last bit")
			} else {
				glog.V(2).Infof("polled: clock timeout after %d bits, byte abandoned", p.asm.Pending())
			}
		default:
			return err
		}
		p.asm.Reset()
		return nil
	}
}

// readByte samples 8 bits, each on a rising CLK edge. Once the 8th bit is
// sampled the byte is complete even if the final falling edge never comes,
// so done may be set together with a non-nil err.
func (p *Polled) readByte(ctx context.Context) (b byte, done bool, err error) {
	for {
		if err = p.waitFor(ctx, p.Lines.CLK, true); err != nil {
			return 0, false, err
		}
		b, done = p.asm.Shift(p.Lines.CODI.Read())
		err = p.waitFor(ctx, p.Lines.CLK, false)
		if done || err != nil {
			return b, done, err
		}
	}
}

// waitFor spins until line reads level. It gives up when CS is deasserted,
// BitTimeout expires or ctx is done.
func (p *Polled) waitFor(ctx context.Context, line bus.Line, level bool) error {
	var deadline time.Time
	for n := 0; ; n++ {
		if p.Lines.CS.Read() {
			return ErrDeselected
		}
		if line.Read() == level {
			return nil
		}
		if n&spinMask != spinMask {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
		if p.BitTimeout > 0 {
			now := time.Now()
			if deadline.IsZero() {
				deadline = now.Add(p.BitTimeout)
			} else if now.After(deadline) {
				return ErrTimeout
			}
		}
	}
}
