package receiver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/cpudbg/pkg/telemetry"
)

// State is the decoder state.
type State int

// States
const (
	StateIdle State = iota
	StateSynchronizing
	StateAccumulating
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSynchronizing:
		return "synchronizing"
	case StateAccumulating:
		return "accumulating"
	}
	return "unknown"
}

// Reporter consumes decoded records.
type Reporter interface {
	Report(context.Context, *telemetry.Record) error
}

// ReportFunc is func form of Reporter.
type ReportFunc func(context.Context, *telemetry.Record) error

// Report implements Reporter.
func (f ReportFunc) Report(ctx context.Context, r *telemetry.Record) error {
	return f(ctx, r)
}

// StateNotifier is called when decoder state changed.
type StateNotifier interface {
	StateChanged(context.Context, State)
}

// StateChangedFunc is func form of StateNotifier.
type StateChangedFunc func(context.Context, State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state State) {
	f(ctx, state)
}

// Defaults
const (
	DefaultFrameDelay        = 250 * time.Millisecond
	DefaultSyncTimeout       = 2 * time.Second
	DefaultAccumulateTimeout = 2 * time.Second
	DefaultPollInterval      = time.Millisecond
)

// DecoderStats are decoder counters.
type DecoderStats struct {
	// Frames counts records decoded and reported.
	Frames uint64 `json:"frames"`
	// Resyncs counts synchronization attempts given up on timeout.
	Resyncs uint64 `json:"resyncs"`
	// Underflows counts records abandoned for lack of bytes.
	Underflows uint64 `json:"underflows"`
	// SkippedBytes counts bytes discarded while looking for a frame start.
	SkippedBytes uint64 `json:"skipped_bytes"`
}

// Decoder is the consumer loop turning queued bytes into records.
type Decoder struct {
	Receiver *Receiver
	Reporter Reporter
	Notifier StateNotifier

	// FrameDelay is the pause after each reported record.
	FrameDelay time.Duration
	// SyncTimeout bounds the search for a frame start, 0 waits forever.
	SyncTimeout time.Duration
	// AccumulateTimeout bounds collecting a whole record, 0 waits forever.
	AccumulateTimeout time.Duration
	// PollInterval spaces queue polls.
	PollInterval time.Duration

	state State
	lock  sync.RWMutex
	stats DecoderStats
}

// NewDecoder creates a Decoder with defaults.
func NewDecoder(r *Receiver, reporter Reporter) *Decoder {
	return &Decoder{
		Receiver:          r,
		Reporter:          reporter,
		FrameDelay:        DefaultFrameDelay,
		SyncTimeout:       DefaultSyncTimeout,
		AccumulateTimeout: DefaultAccumulateTimeout,
		PollInterval:      DefaultPollInterval,
	}
}

// Name implements framework.Named.
func (d *Decoder) Name() string {
	return "decoder"
}

// State gets the state.
func (d *Decoder) State() State {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return d.state
}

// Stats returns a snapshot of counters.
func (d *Decoder) Stats() DecoderStats {
	return DecoderStats{
		Frames:       atomic.LoadUint64(&d.stats.Frames),
		Resyncs:      atomic.LoadUint64(&d.stats.Resyncs),
		Underflows:   atomic.LoadUint64(&d.stats.Underflows),
		SkippedBytes: atomic.LoadUint64(&d.stats.SkippedBytes),
	}
}

// Run implements framework.Runnable.
func (d *Decoder) Run(ctx context.Context) error {
	defer d.setState(ctx, StateIdle)
	defer d.Receiver.Disable()
	for {
		synced, err := d.synchronize(ctx)
		if err != nil {
			return err
		}
		if !synced {
			continue
		}
		if synced, err = d.accumulate(ctx); err != nil {
			return err
		}
		if !synced {
			continue
		}
		if err = d.decode(ctx); err != nil {
			return err
		}
	}
}

// synchronize enables the receiver and drops bytes until the front one
// carries the frame marker.
func (d *Decoder) synchronize(ctx context.Context) (bool, error) {
	d.setState(ctx, StateSynchronizing)
	q := d.Receiver.Queue
	q.Clear()
	d.Receiver.Enable()
	deadline := d.deadline(d.SyncTimeout)
	var skipped uint64
	for {
		s, err := q.Peek()
		if err == nil {
			if s.Marker {
				return true, nil
			}
			q.Dequeue()
			skipped++
			atomic.AddUint64(&d.stats.SkippedBytes, 1)
			continue
		}
		if expired(deadline) {
			if skipped > 0 {
				atomic.AddUint64(&d.stats.Resyncs, 1)
				glog.Warningf("decoder: no frame start after %d bytes, resync", skipped)
			}
			return false, nil
		}
		if err := d.sleep(ctx, d.PollInterval); err != nil {
			return false, err
		}
	}
}

// accumulate waits until a whole record is queued.
func (d *Decoder) accumulate(ctx context.Context) (bool, error) {
	d.setState(ctx, StateAccumulating)
	q := d.Receiver.Queue
	deadline := d.deadline(d.AccumulateTimeout)
	for q.Len() < telemetry.FrameSize {
		if expired(deadline) {
			atomic.AddUint64(&d.stats.Resyncs, 1)
			glog.Warningf("decoder: only %d of %d bytes received, resync", q.Len(), telemetry.FrameSize)
			return false, nil
		}
		if err := d.sleep(ctx, d.PollInterval); err != nil {
			return false, err
		}
	}
	return true, nil
}

// decode stops queueing, consumes one record and holds Idle for FrameDelay.
func (d *Decoder) decode(ctx context.Context) error {
	d.Receiver.Disable()
	d.setState(ctx, StateIdle)
	q := d.Receiver.Queue
	rec, err := telemetry.Decode(q)
	q.Clear()
	if err != nil {
		atomic.AddUint64(&d.stats.Underflows, 1)
		glog.Warningf("decoder: %v, record abandoned", err)
		return nil
	}
	atomic.AddUint64(&d.stats.Frames, 1)
	glog.V(2).Infof("decoder: frame IP=%08X icount=%d", rec.IP, rec.ICount)
	if r := d.Reporter; r != nil {
		if err := r.Report(ctx, rec); err != nil {
			glog.Errorf("decoder: report error: %v", err)
		}
	}
	return d.sleep(ctx, d.FrameDelay)
}

func (d *Decoder) setState(ctx context.Context, state State) {
	var notifier StateNotifier
	d.lock.Lock()
	if d.state != state {
		d.state = state
		notifier = d.Notifier
	}
	d.lock.Unlock()
	if notifier != nil {
		notifier.StateChanged(ctx, state)
	}
}

func (d *Decoder) deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

func (d *Decoder) sleep(ctx context.Context, dur time.Duration) error {
	if dur <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(dur):
		return nil
	}
}
