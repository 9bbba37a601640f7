// Package receiver connects the bit sampler to the frame decoder.
package receiver

import (
	"sync/atomic"

	"github.com/robotalks/cpudbg/pkg/queue"
)

// Receiver is the sampler side of the receive queue. It implements
// sampler.ByteSink and gates enqueueing with the enable flag.
type Receiver struct {
	Queue *queue.Ring

	enabled atomic.Bool
	stats   Stats
}

// Stats are receiver counters.
type Stats struct {
	// Enqueued counts bytes accepted into the queue.
	Enqueued uint64 `json:"enqueued"`
	// Dropped counts bytes lost because the queue was full.
	Dropped uint64 `json:"dropped"`
	// Discarded counts bytes ignored while disabled.
	Discarded uint64 `json:"discarded"`
}

// New creates a Receiver, initially disabled.
func New(q *queue.Ring) *Receiver {
	return &Receiver{Queue: q}
}

// HandleByte implements sampler.ByteSink.
func (r *Receiver) HandleByte(b byte, marker bool) {
	if !r.enabled.Load() {
		atomic.AddUint64(&r.stats.Discarded, 1)
		return
	}
	if r.Queue.Enqueue(queue.Sample{Value: b, Marker: marker}) {
		atomic.AddUint64(&r.stats.Enqueued, 1)
	} else {
		atomic.AddUint64(&r.stats.Dropped, 1)
	}
}

// Enable starts accepting bytes.
func (r *Receiver) Enable() {
	r.enabled.Store(true)
}

// Disable stops accepting bytes.
func (r *Receiver) Disable() {
	r.enabled.Store(false)
}

// Enabled returns the enable flag.
func (r *Receiver) Enabled() bool {
	return r.enabled.Load()
}

// Stats returns a snapshot of counters.
func (r *Receiver) Stats() Stats {
	return Stats{
		Enqueued:  atomic.LoadUint64(&r.stats.Enqueued),
		Dropped:   atomic.LoadUint64(&r.stats.Dropped),
		Discarded: atomic.LoadUint64(&r.stats.Discarded),
	}
}
