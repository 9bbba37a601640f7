package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cpudbg/pkg/bus"
	"github.com/robotalks/cpudbg/pkg/telemetry"
)

// decodeRising recovers bytes by sampling CODI on each rising CLK edge.
func decodeRising(states []bus.LineState) (out []Word) {
	var prev bus.LineState
	prev.CS = true
	var acc byte
	var bits int
	for _, s := range states {
		if s.Selected() && s.CLK && !prev.CLK {
			acc <<= 1
			if s.CODI {
				acc |= 1
			}
			if bits++; bits == 8 {
				out = append(out, Word{Value: acc, Marker: s.CD})
				acc, bits = 0, 0
			}
		}
		prev = s
	}
	return
}

func TestSynthesize(t *testing.T) {
	testCases := []struct {
		name   string
		timing Timing
		words  []Word
	}{
		{"single", Timing{}, []Word{{Value: 0xa5, Marker: true}}},
		{"frame", Timing{HalfPeriod: 2, Gap: 1}, FrameWords([]byte{0x78, 0x56, 0x34, 0x12})},
		{"continuous", Timing{HalfPeriod: 3, Continuous: true}, FrameWords([]byte{0xff, 0x00, 0x80, 0x01})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			states := Synthesize(tc.timing, tc.words...)
			require.Equal(t, tc.words, decodeRising(states))
			require.True(t, states[0].CS)
			require.True(t, states[len(states)-1].CS)
		})
	}
}

func TestSynthesizeCSPerWord(t *testing.T) {
	states := Synthesize(Timing{}, Word{Value: 1}, Word{Value: 2})
	var falling int
	prev := true
	for _, s := range states {
		if prev && !s.CS {
			falling++
		}
		prev = s.CS
	}
	require.Equal(t, 2, falling)
}

func TestTruncate(t *testing.T) {
	states := Truncate(Timing{}, Word{Value: 0xff}, 3)
	var rising int
	var prev bus.LineState
	for _, s := range states {
		if s.CLK && !prev.CLK {
			rising++
		}
		prev = s
	}
	require.Equal(t, 3, rising)
	require.Empty(t, decodeRising(states))
}

func TestPlayback(t *testing.T) {
	states := []bus.LineState{{CS: true}, {CLK: true, CODI: true}, {CD: true}}
	p := NewPlayback(states)
	lines := p.Lines()
	require.True(t, lines.CS.Read())
	require.True(t, lines.CLK.Read())
	require.True(t, lines.CODI.Read())
	require.False(t, lines.CD.Read())
	require.False(t, p.Done())
	require.False(t, lines.CLK.Read())
	require.True(t, lines.CD.Read())
	require.True(t, p.Done())
	// holds the last state
	require.Equal(t, states[2], p.Sample())
}

func TestBusApply(t *testing.T) {
	b := NewBus()
	require.True(t, b.CS.Read())
	s := bus.LineState{CLK: true, CODI: true, CD: true}
	b.Apply(s)
	require.Equal(t, s, b.Sample())
	require.Equal(t, s, b.Lines().Sample())
}

func TestCPU(t *testing.T) {
	a, b := NewCPU(7), NewCPU(7)
	var prev telemetry.Record
	for n := 0; n < 100; n++ {
		frame := a.NextFrame()
		require.Len(t, frame, telemetry.FrameSize)
		var r telemetry.Record
		require.NoError(t, r.UnmarshalBinary(frame))
		require.Equal(t, b.Step(), r, "same seed, same run")
		require.Equal(t, prev.ICount+1, r.ICount)
		require.True(t, r.ECount > prev.ECount)
		require.Equal(t, prev.F, r.PF)
		prev = r
	}
	require.Equal(t, prev, a.State())
}
