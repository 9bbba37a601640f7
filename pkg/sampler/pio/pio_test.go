package pio

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cpudbg/pkg/bus"
	"github.com/robotalks/cpudbg/pkg/bus/sim"
	"github.com/robotalks/cpudbg/pkg/indicator"
	"github.com/robotalks/cpudbg/pkg/sampler"
)

func stepAll(m *Machine, states []bus.LineState) (words []sim.Word, abandoned []int) {
	for _, s := range states {
		r := m.Step(s)
		if r.Pushed {
			words = append(words, sim.Word{Value: r.Value, Marker: r.Marker})
		}
		if r.Abandoned {
			abandoned = append(abandoned, r.Bits)
		}
	}
	return
}

func TestMachine(t *testing.T) {
	frame := sim.FrameWords([]byte{0x78, 0x56, 0x34, 0x12, 0x00, 0xff, 0x81})
	lateDeselect := sim.Synthesize(sim.Timing{HalfPeriod: 1, Gap: 1}, sim.Word{Value: 0x01})
	// drop the trailer so CS rises while CLK is still high after bit 0.
	lateDeselect = append(lateDeselect[:len(lateDeselect)-2], bus.LineState{CS: true, CLK: true, CODI: true})

	testCases := []struct {
		name      string
		states    []bus.LineState
		expect    []sim.Word
		abandoned []int
	}{
		{
			name:   "cs per byte",
			states: sim.Synthesize(sim.Timing{}, frame...),
			expect: frame,
		},
		{
			name:   "continuous cs",
			states: sim.Synthesize(sim.Timing{HalfPeriod: 1, Continuous: true}, frame...),
			expect: frame,
		},
		{
			name: "abandon deselected byte",
			states: append(
				sim.Truncate(sim.Timing{}, sim.Word{Value: 0xff}, 5),
				sim.Synthesize(sim.Timing{}, frame[:2]...)...),
			expect:    frame[:2],
			abandoned: []int{5},
		},
		{
			name: "deselect while clock high",
			states: append(
				sim.Truncate(sim.Timing{HalfPeriod: 1}, sim.Word{Value: 0xff}, 3)[:10],
				bus.LineState{CS: true, CLK: true}),
			abandoned: []int{3},
		},
		{
			name:   "deselect after last bit",
			states: lateDeselect,
			expect: []sim.Word{{Value: 0x01}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var m Machine
			words, abandoned := stepAll(&m, tc.states)
			require.Equal(t, tc.expect, words)
			require.Equal(t, tc.abandoned, abandoned)
			require.False(t, m.Selected())
		})
	}
}

func TestMachineReset(t *testing.T) {
	var m Machine
	states := sim.Synthesize(sim.Timing{HalfPeriod: 1, Gap: 1}, sim.Word{Value: 0xf0})
	stepAll(&m, states[:6])
	require.True(t, m.Selected())
	m.Reset()
	require.False(t, m.Selected())
	words, _ := stepAll(&m, sim.Synthesize(sim.Timing{}, sim.Word{Value: 0x3c}))
	require.Equal(t, []sim.Word{{Value: 0x3c}}, words)
}

type collector struct {
	lock  sync.Mutex
	words []sim.Word
}

func (c *collector) HandleByte(b byte, marker bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.words = append(c.words, sim.Word{Value: b, Marker: marker})
}

func (c *collector) snapshot() []sim.Word {
	c.lock.Lock()
	defer c.lock.Unlock()
	return append([]sim.Word(nil), c.words...)
}

func waitUntil(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSource(t *testing.T) {
	frame := sim.FrameWords([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	pb := sim.NewPlayback(
		sim.Truncate(sim.Timing{}, sim.Word{Value: 0xaa}, 4),
		sim.Synthesize(sim.Timing{}, frame...),
	)
	src := NewSource(pb)
	var shown []byte
	var shownLock sync.Mutex
	src.Activity = indicator.ShowFunc(func(b byte) {
		shownLock.Lock()
		shown = append(shown, b)
		shownLock.Unlock()
	})
	sink := &collector{}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- src.Run(ctx, sink)
	}()
	waitUntil(t, func() bool {
		shownLock.Lock()
		defer shownLock.Unlock()
		return len(shown) == len(frame)
	})
	cancel()
	select {
	case err := <-errCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop")
	}

	require.Equal(t, frame, sink.snapshot())
	stats := src.Stats()
	require.Equal(t, uint64(len(frame)), stats.Bytes)
	require.Equal(t, uint64(1), stats.Abandoned)
	require.Zero(t, stats.Overruns)
}

func TestSourceOverrun(t *testing.T) {
	words := make([]sim.Word, FIFODepth+4)
	for n := range words {
		words[n].Value = byte(n)
	}
	pb := sim.NewPlayback(sim.Synthesize(sim.Timing{HalfPeriod: 1, Gap: 1}, words...))
	src := NewSource(pb)
	src.DropOnOverrun = true
	release := make(chan struct{})
	var got []byte
	var lock sync.Mutex
	sink := sampler.HandleByteFunc(func(b byte, marker bool) {
		<-release
		lock.Lock()
		got = append(got, b)
		lock.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- src.Run(ctx, sink)
	}()
	waitUntil(t, pb.Done)
	waitUntil(t, func() bool { return src.Stats().Overruns > 0 })
	close(release)
	cancel()
	require.Equal(t, context.Canceled, <-errCh)

	lock.Lock()
	defer lock.Unlock()
	stats := src.Stats()
	require.Equal(t, uint64(len(words)), uint64(len(got))+stats.Overruns)
	require.Equal(t, byte(0), got[0])
}

func TestSourceStallsWhenFull(t *testing.T) {
	words := make([]sim.Word, FIFODepth*3)
	for n := range words {
		words[n].Value = byte(n)
	}
	pb := sim.NewPlayback(sim.Synthesize(sim.Timing{HalfPeriod: 1, Gap: 1}, words...))
	src := NewSource(pb)
	release := make(chan struct{})
	sink := &collector{}
	blocking := sampler.HandleByteFunc(func(b byte, marker bool) {
		<-release
		sink.HandleByte(b, marker)
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- src.Run(ctx, blocking)
	}()
	time.Sleep(20 * time.Millisecond)
	require.False(t, pb.Done())
	close(release)
	waitUntil(t, func() bool { return len(sink.snapshot()) == len(words) })
	cancel()
	require.Equal(t, context.Canceled, <-errCh)

	require.Equal(t, words, sink.snapshot())
	require.Zero(t, src.Stats().Overruns)
	require.True(t, pb.Done())
}
