// Package queue provides the receive queue between the bit sampler and the
// frame decoder.
package queue

import (
	"errors"
	"sync/atomic"
)

// DefaultSize is the default maximum number of samples held.
const DefaultSize = 256

// ErrEmpty indicates the queue has no samples.
var ErrEmpty = errors.New("queue empty")

// Sample is a received byte with its frame-marker level.
type Sample struct {
	Value  byte
	Marker bool
}

// Ring is a bounded FIFO of samples for exactly one producer and one
// consumer. The producer owns tail, the consumer owns head. Enqueue on a
// full ring drops the sample, there is no backpressure.
type Ring struct {
	buf  []Sample
	mask uint64
	max  uint64
	head atomic.Uint64
	tail atomic.Uint64
}

// NewRing creates a Ring holding at most max samples.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = DefaultSize
	}
	size := 1
	for size < max {
		size <<= 1
	}
	return &Ring{
		buf:  make([]Sample, size),
		mask: uint64(size - 1),
		max:  uint64(max),
	}
}

// Enqueue appends s. It returns false if the ring already holds Cap
// samples, in which case s is dropped. Producer only.
func (r *Ring) Enqueue(s Sample) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= r.max {
		return false
	}
	r.buf[tail&r.mask] = s
	r.tail.Store(tail + 1)
	return true
}

// Dequeue removes and returns the front sample. Consumer only.
func (r *Ring) Dequeue() (Sample, error) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return Sample{}, ErrEmpty
	}
	s := r.buf[head&r.mask]
	r.head.Store(head + 1)
	return s, nil
}

// Peek returns the front sample without removing it. Consumer only.
func (r *Ring) Peek() (Sample, error) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return Sample{}, ErrEmpty
	}
	return r.buf[head&r.mask], nil
}

// Len returns the number of samples held.
func (r *Ring) Len() int {
	head := r.head.Load()
	return int(r.tail.Load() - head)
}

// Cap returns the maximum number of samples held.
func (r *Ring) Cap() int {
	return int(r.max)
}

// Clear drops all samples currently held. Consumer only.
func (r *Ring) Clear() {
	r.head.Store(r.tail.Load())
}
