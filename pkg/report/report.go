// Package report publishes decoded records.
package report

import (
	"context"
	"sync/atomic"
	"time"

	fx "github.com/robotalks/cpudbg/pkg/framework"
	"github.com/robotalks/cpudbg/pkg/receiver"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
	"github.com/robotalks/cpudbg/pkg/telemetry"
)

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// WritePacketFunc is func form of PacketWriter.
type WritePacketFunc func([]byte) error

// WritePacket implements PacketWriter.
func (f WritePacketFunc) WritePacket(pkt []byte) error {
	return f(pkt)
}

// Mux fans a record out to all reporters.
type Mux struct {
	Reporters []receiver.Reporter
}

// Add adds reporters.
func (m *Mux) Add(reporters ...receiver.Reporter) *Mux {
	m.Reporters = append(m.Reporters, reporters...)
	return m
}

// Report implements receiver.Reporter.
func (m *Mux) Report(ctx context.Context, r *telemetry.Record) error {
	var errs fx.AggregatedError
	for _, reporter := range m.Reporters {
		errs.Add(reporter.Report(ctx, r))
	}
	return errs.Aggregate()
}

// Framer stamps records into Frames.
type Framer struct {
	ReceiverID string
	// Clock defaults to time.Now.
	Clock func() time.Time

	seq uint64
}

// Frame creates the next Frame from r.
func (f *Framer) Frame(r *telemetry.Record) *msgs.Frame {
	clock := f.Clock
	if clock == nil {
		clock = time.Now
	}
	return msgs.NewFrame(f.ReceiverID, atomic.AddUint64(&f.seq, 1), clock(), r)
}

// Publisher frames and encodes each record once and writes the packet to
// every writer, so all outputs carry the same sequence number.
type Publisher struct {
	Framer   *Framer
	Encoding msgs.Encoding
	Writers  []PacketWriter
}

// Add adds writers.
func (p *Publisher) Add(writers ...PacketWriter) *Publisher {
	p.Writers = append(p.Writers, writers...)
	return p
}

// Report implements receiver.Reporter.
func (p *Publisher) Report(ctx context.Context, r *telemetry.Record) error {
	if len(p.Writers) == 0 {
		return nil
	}
	data, err := p.Encoding.Marshal(p.Framer.Frame(r))
	if err != nil {
		return err
	}
	var errs fx.AggregatedError
	for _, w := range p.Writers {
		errs.Add(w.WritePacket(data))
	}
	return errs.Aggregate()
}
