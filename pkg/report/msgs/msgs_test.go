package msgs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/cpudbg/pkg/telemetry"
)

func sampleRecord() *telemetry.Record {
	return &telemetry.Record{
		IP: 0x12345678, BP: 0xff00, SP: 0xfef0,
		A: 1, B: 0xffff, C: 3, D: 4, I: 5, J: 6, K: 7, L: 8,
		F: 0x81, PF: 0x80,
		OOP: 0xf1, COP: 0x22, RIM: 0x33, BIO: 0x44,
		IMM: 0xdeadbeef, EI8: 0xff,
		ICount: 1000, ECount: 3500, MCount: 4200,
	}
}

func TestFrameRecord(t *testing.T) {
	at := time.Unix(1700000000, 123)
	f := NewFrame("rx", 7, at, sampleRecord())
	require.Equal(t, sampleRecord(), f.Record())
	require.Equal(t, at, f.Time())
	require.Equal(t, uint64(7), f.Seq)
}

func TestEncodings(t *testing.T) {
	frame := NewFrame("rx", 42, time.Unix(0, 99), sampleRecord())
	for _, name := range []string{EncodingProto, EncodingCBOR, EncodingJSON} {
		t.Run(name, func(t *testing.T) {
			enc, err := EncodingByName(name)
			require.NoError(t, err)
			require.Equal(t, name, enc.Name())
			require.NotEmpty(t, enc.ContentType())
			data, err := enc.Marshal(frame)
			require.NoError(t, err)
			var decoded Frame
			require.NoError(t, enc.Unmarshal(data, &decoded))
			require.Equal(t, *frame, decoded)
		})
	}
	_, err := EncodingByName("xml")
	require.Error(t, err)
}

func TestFrameString(t *testing.T) {
	f := &Frame{ReceiverID: "rx", IP: 16}
	require.Contains(t, f.String(), `receiver_id:"rx"`)
	f.Reset()
	require.Equal(t, Frame{}, *f)
}
