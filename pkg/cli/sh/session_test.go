package sh

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cpudbg/pkg/report/mqtt"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
)

func TestSessionHistory(t *testing.T) {
	s := NewSession(mqtt.ReceiverInfo{ID: "rx"}, 3)
	require.Nil(t, s.Last())
	require.Empty(t, s.History(5))

	var followed []uint64
	s.SetOnFrame(func(f *msgs.Frame) { followed = append(followed, f.Seq) })
	for n := uint64(1); n <= 5; n++ {
		s.AddFrame(&msgs.Frame{Seq: n})
	}
	require.Equal(t, uint64(5), s.Last().Seq)
	seqs := func(frames []*msgs.Frame) (out []uint64) {
		for _, f := range frames {
			out = append(out, f.Seq)
		}
		return
	}
	require.Equal(t, []uint64{3, 4, 5}, seqs(s.History(10)))
	require.Equal(t, []uint64{4, 5}, seqs(s.History(2)))
	require.Equal(t, []uint64{3, 4, 5}, seqs(s.History(0)))
	require.Equal(t, []uint64{1, 2, 3, 4, 5}, followed)

	s.SetOnFrame(nil)
	s.AddFrame(&msgs.Frame{Seq: 6})
	require.Len(t, followed, 5)
}

func TestSessionStats(t *testing.T) {
	s := NewSession(mqtt.ReceiverInfo{ID: "rx"}, 1)
	require.Nil(t, s.Stats())
	s.SetStats(json.RawMessage(`{"decoder":{"frames":1}}`))
	require.JSONEq(t, `{"decoder":{"frames":1}}`, string(s.Stats()))
}

func TestFormatInfo(t *testing.T) {
	testCases := []struct {
		info   mqtt.ReceiverInfo
		expect string
	}{
		{mqtt.ReceiverInfo{ID: "rx", Meta: msgs.Meta{Encoding: "proto"}}, "rx [proto]"},
		{mqtt.ReceiverInfo{ID: "rx", Meta: msgs.Meta{Encoding: "cbor", Sampler: "pio", Description: "bench"}}, "rx [cbor, pio]: bench"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expect, FormatInfo(tc.info))
	}
}
