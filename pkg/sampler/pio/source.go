// Package pio implements the hardware-assisted sampler: a state machine
// sampling the bus independently of the consumer, with a small RX FIFO
// and an interrupt handing bytes over.
package pio

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/bus"
	"github.com/robotalks/cpudbg/pkg/indicator"
	"github.com/robotalks/cpudbg/pkg/sampler"
)

// FIFODepth is the depth of the RX FIFO.
const FIFODepth = 4

// ctxCheckMask sets how often the machine loop checks its context and
// yields the processor.
const ctxCheckMask = 0xfff

// Source runs a Machine over a bus.Sampler.
type Source struct {
	Sampler bus.Sampler
	// Activity optionally mirrors every delivered byte.
	Activity indicator.Indicator
	// DropOnOverrun drops completed bytes while the FIFO is full instead of
	// stalling the machine until the interrupt drains it.
	DropOnOverrun bool

	stats sampler.Stats
}

type rxWord struct {
	value  byte
	marker bool
}

// NewSource creates a Source.
func NewSource(s bus.Sampler) *Source {
	return &Source{Sampler: s}
}

// Name implements framework.Named.
func (s *Source) Name() string {
	return "sampler-pio"
}

// Stats returns a snapshot of counters.
func (s *Source) Stats() sampler.Stats {
	return sampler.Stats{
		Bytes:     atomic.LoadUint64(&s.stats.Bytes),
		Abandoned: atomic.LoadUint64(&s.stats.Abandoned),
		Overruns:  atomic.LoadUint64(&s.stats.Overruns),
	}
}

// Run implements sampler.Source.
func (s *Source) Run(ctx context.Context, sink sampler.ByteSink) error {
	if lines, ok := s.Sampler.(*bus.Lines); ok {
		if err := lines.Validate(); err != nil {
			return err
		}
	}
	fifo := make(chan rxWord, FIFODepth)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.irq(fifo, sink)
	}()
	err := s.machine(ctx, fifo)
	close(fifo)
	wg.Wait()
	return err
}

func (s *Source) machine(ctx context.Context, fifo chan<- rxWord) error {
	var m Machine
	for n := 0; ; n++ {
		if n&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			runtime.Gosched()
		}
		r := m.Step(s.Sampler.Sample())
		if r.Abandoned {
			atomic.AddUint64(&s.stats.Abandoned, 1)
			glog.V(2).Infof("pio: deselected after %d bits, byte abandoned", r.Bits)
		}
		if !r.Pushed {
			continue
		}
		if err := s.push(ctx, fifo, rxWord{value: r.Value, marker: r.Marker}); err != nil {
			return err
		}
	}
}

func (s *Source) push(ctx context.Context, fifo chan<- rxWord, w rxWord) error {
	select {
	case fifo <- w:
		return nil
	default:
	}
	if s.DropOnOverrun {
		atomic.AddUint64(&s.stats.Overruns, 1)
		glog.Warningf("pio: rx fifo overrun, byte %02x dropped", w.value)
		return nil
	}
	select {
	case fifo <- w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Source) irq(fifo <-chan rxWord, sink sampler.ByteSink) {
	for w := range fifo {
		atomic.AddUint64(&s.stats.Bytes, 1)
		sink.HandleByte(w.value, w.marker)
		if a := s.Activity; a != nil {
			a.Show(w.value)
		}
	}
}
