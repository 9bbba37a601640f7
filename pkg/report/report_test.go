package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cpudbg/pkg/receiver"
	"github.com/robotalks/cpudbg/pkg/report/msgs"
	"github.com/robotalks/cpudbg/pkg/telemetry"
)

func sampleRecord() *telemetry.Record {
	return &telemetry.Record{
		IP: 0x12345678, BP: 0xff00, SP: 0xfef0,
		A: 0x1, B: 0xbeef, C: 0x3, D: 0x4, I: 0x5, J: 0x6, K: 0x7, L: 0x8,
		F: 0x81, PF: 0x80,
		OOP: 0xf1, COP: 0x22, RIM: 0x33, BIO: 0x44,
		IMM: 0xdeadbeef, EI8: 0x0a,
		ICount: 1000, ECount: 3500, MCount: 4200,
	}
}

func TestFormatText(t *testing.T) {
	expected := strings.Join([]string{
		"IP       BP       SP",
		"12345678 0000FF00 0000FEF0",
		"",
		"A    B    C    D",
		"0001 BEEF 0003 0004",
		"I    J    K    L",
		"0005 0006 0007 0008",
		"",
		"F    PF",
		"0081 0080",
		"",
		"OOP: F1",
		"COP: 22",
		"RIM: 33",
		"BIO: 44",
		"IMM: DEADBEEF",
		"EI8: 0A",
		"",
		"Instruction Count: 1000",
		"Exec Clock Count:  3500",
		"Mem Clock Count:   4200",
		"",
		"",
		"",
	}, "\n")
	require.Equal(t, expected, FormatText(sampleRecord()))

	var buf bytes.Buffer
	require.NoError(t, NewText(&buf).Report(context.Background(), sampleRecord()))
	require.Equal(t, expected, buf.String())
}

func TestMux(t *testing.T) {
	var calls int
	failure := errors.New("failed")
	ok := receiver.ReportFunc(func(context.Context, *telemetry.Record) error {
		calls++
		return nil
	})
	fail := receiver.ReportFunc(func(context.Context, *telemetry.Record) error {
		calls++
		return failure
	})

	var m Mux
	require.NoError(t, m.Report(context.Background(), sampleRecord()))
	m.Add(ok, ok)
	require.NoError(t, m.Report(context.Background(), sampleRecord()))
	require.Equal(t, 2, calls)
	m.Add(fail)
	err := m.Report(context.Background(), sampleRecord())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed")
	require.Equal(t, 5, calls, "all reporters called despite failure")
}

func TestPublisher(t *testing.T) {
	at := time.Unix(1700000000, 0)
	var packets [][]byte
	enc, err := msgs.EncodingByName(msgs.EncodingCBOR)
	require.NoError(t, err)
	p := &Publisher{
		Framer:   &Framer{ReceiverID: "rx", Clock: func() time.Time { return at }},
		Encoding: enc,
		Writers: []PacketWriter{WritePacketFunc(func(pkt []byte) error {
			packets = append(packets, pkt)
			return nil
		})},
	}
	require.NoError(t, p.Report(context.Background(), sampleRecord()))
	require.NoError(t, p.Report(context.Background(), sampleRecord()))
	require.Len(t, packets, 2)
	for n, pkt := range packets {
		var f msgs.Frame
		require.NoError(t, enc.Unmarshal(pkt, &f))
		require.Equal(t, "rx", f.ReceiverID)
		require.Equal(t, uint64(n+1), f.Seq)
		require.Equal(t, at, f.Time())
		require.Equal(t, sampleRecord(), f.Record())
	}
}

func TestPublisherWriters(t *testing.T) {
	enc, err := msgs.EncodingByName(msgs.EncodingJSON)
	require.NoError(t, err)
	failure := errors.New("write failed")
	seqs := make([][]uint64, 2)
	writer := func(n int) PacketWriter {
		return WritePacketFunc(func(pkt []byte) error {
			var f msgs.Frame
			require.NoError(t, enc.Unmarshal(pkt, &f))
			seqs[n] = append(seqs[n], f.Seq)
			return nil
		})
	}
	p := &Publisher{Framer: &Framer{ReceiverID: "rx"}, Encoding: enc}
	require.NoError(t, p.Report(context.Background(), sampleRecord()))
	p.Add(writer(0), writer(1))
	for n := 0; n < 3; n++ {
		require.NoError(t, p.Report(context.Background(), sampleRecord()))
	}
	require.Equal(t, []uint64{1, 2, 3}, seqs[0])
	require.Equal(t, seqs[0], seqs[1])

	p.Add(WritePacketFunc(func([]byte) error { return failure }))
	err = p.Report(context.Background(), sampleRecord())
	require.True(t, errors.Is(err, failure))
	require.Equal(t, []uint64{1, 2, 3, 4}, seqs[1])
}

func TestNewOutputs(t *testing.T) {
	testCases := []struct {
		name      string
		conf      Config
		reporters int
		runnables int
		fail      bool
	}{
		{name: "text", conf: Config{Text: true, Format: "json"}, reporters: 1},
		{name: "websocket and stream", conf: Config{Format: "proto", WebsocketAddr: ":0", StreamURL: "tcp://localhost:7000"}, reporters: 1, runnables: 2},
		{name: "text and websocket", conf: Config{Text: true, Format: "json", WebsocketAddr: ":0"}, reporters: 2, runnables: 1},
		{name: "mqtt", conf: Config{ID: "rx", Format: "cbor", MQTTBrokerURL: "mqtt://localhost:1883/lab/"}, reporters: 1, runnables: 1},
		{name: "mqtt without id", conf: Config{Format: "cbor", MQTTBrokerURL: "mqtt://localhost:1883"}, fail: true},
		{name: "bad format", conf: Config{Format: "xml"}, fail: true},
		{name: "bad stream", conf: Config{Format: "json", StreamURL: "ftp://x"}, fail: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.conf.NewOutputs("polled", nil)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, out.Mux.Reporters, tc.reporters)
			require.Len(t, out.Runnables, tc.runnables)
		})
	}
}
