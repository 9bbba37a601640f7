package sim

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/bus"
)

// FrameSource produces the next frame to transmit.
type FrameSource interface {
	NextFrame() []byte
}

// NextFrameFunc is func form of FrameSource.
type NextFrameFunc func() []byte

// NextFrame implements FrameSource.
func (f NextFrameFunc) NextFrame() []byte {
	return f()
}

// Transmitter emulates the CPU-under-test in real time by driving a Bus.
type Transmitter struct {
	Bus    *Bus
	Source FrameSource
	// HalfPeriod is the time each clock level is held.
	HalfPeriod time.Duration
	// Interval is the idle time between frames.
	Interval time.Duration
	// Timing shapes each frame, only Gap and Continuous are used, Gap in
	// units of HalfPeriod.
	Timing Timing
}

// DefaultHalfPeriod gives a 5kHz bus clock.
const DefaultHalfPeriod = 100 * time.Microsecond

// NewTransmitter creates a Transmitter with defaults.
func NewTransmitter(b *Bus, src FrameSource) *Transmitter {
	return &Transmitter{
		Bus:        b,
		Source:     src,
		HalfPeriod: DefaultHalfPeriod,
		Interval:   50 * time.Millisecond,
		Timing:     Timing{HalfPeriod: 1, Gap: 2},
	}
}

// Name implements framework.Named.
func (t *Transmitter) Name() string {
	return "sim-transmitter"
}

// Run implements framework.Runnable.
func (t *Transmitter) Run(ctx context.Context) error {
	timing := t.Timing
	timing.HalfPeriod = 1
	for {
		frame := t.Source.NextFrame()
		glog.V(3).Infof("sim: transmit %d bytes", len(frame))
		for _, s := range Synthesize(timing, FrameWords(frame)...) {
			if err := t.hold(ctx, s, t.HalfPeriod); err != nil {
				return err
			}
		}
		if err := t.hold(ctx, bus.LineState{CS: true}, t.Interval); err != nil {
			return err
		}
	}
}

func (t *Transmitter) hold(ctx context.Context, s bus.LineState, d time.Duration) error {
	t.Bus.Apply(s)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
