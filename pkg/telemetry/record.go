// Package telemetry defines the CPU state record published on the debug bus.
package telemetry

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/robotalks/cpudbg/pkg/queue"
)

// FrameSize is the encoded size of a Record.
const FrameSize = 53

// ErrUnderflow indicates fewer bytes are available than a pull needs.
var ErrUnderflow = errors.New("underflow")

// Record is one snapshot of the CPU-under-test.
type Record struct {
	IP uint32 `json:"ip"`
	BP uint32 `json:"bp"`
	SP uint32 `json:"sp"`

	A uint16 `json:"a"`
	B uint16 `json:"b"`
	C uint16 `json:"c"`
	D uint16 `json:"d"`
	I uint16 `json:"i"`
	J uint16 `json:"j"`
	K uint16 `json:"k"`
	L uint16 `json:"l"`

	F  uint16 `json:"f"`
	PF uint16 `json:"pf"`

	OOP uint8  `json:"oop"`
	COP uint8  `json:"cop"`
	RIM uint8  `json:"rim"`
	BIO uint8  `json:"bio"`
	IMM uint32 `json:"imm"`
	EI8 uint8  `json:"ei8"`

	ICount uint32 `json:"icount"`
	ECount uint32 `json:"ecount"`
	MCount uint32 `json:"mcount"`
}

// Source is the byte supply of a decode, normally a *queue.Ring.
type Source interface {
	Dequeue() (queue.Sample, error)
	Len() int
}

// PullByte removes one byte.
func PullByte(src Source) (uint8, error) {
	s, err := src.Dequeue()
	if err == queue.ErrEmpty {
		return 0, ErrUnderflow
	}
	return s.Value, err
}

// PullWord removes 2 bytes, little-endian.
func PullWord(src Source) (uint16, error) {
	if src.Len() < 2 {
		return 0, ErrUnderflow
	}
	lo, err := PullByte(src)
	if err != nil {
		return 0, err
	}
	hi, err := PullByte(src)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// PullDword removes 4 bytes, little-endian.
func PullDword(src Source) (uint32, error) {
	if src.Len() < 4 {
		return 0, ErrUnderflow
	}
	lo, err := PullWord(src)
	if err != nil {
		return 0, err
	}
	hi, err := PullWord(src)
	if err != nil {
		return 0, err
	}
	return uint32(lo) | uint32(hi)<<16, nil
}

// puller pulls fields in order and keeps the first error.
type puller struct {
	src Source
	err error
}

func (p *puller) u8(v *uint8) {
	if p.err == nil {
		*v, p.err = PullByte(p.src)
	}
}

func (p *puller) u16(v *uint16) {
	if p.err == nil {
		*v, p.err = PullWord(p.src)
	}
}

func (p *puller) u32(v *uint32) {
	if p.err == nil {
		*v, p.err = PullDword(p.src)
	}
}

// Decode pulls one Record from src in field order. If fewer than FrameSize
// bytes are available, ErrUnderflow is returned and nothing is consumed.
func Decode(src Source) (*Record, error) {
	if n := src.Len(); n < FrameSize {
		return nil, ErrUnderflow
	}
	r := &Record{}
	p := &puller{src: src}
	p.u32(&r.IP)
	p.u32(&r.BP)
	p.u32(&r.SP)
	for _, v := range r.words() {
		p.u16(v)
	}
	for _, v := range []*uint8{&r.OOP, &r.COP, &r.RIM, &r.BIO} {
		p.u8(v)
	}
	p.u32(&r.IMM)
	p.u8(&r.EI8)
	p.u32(&r.ICount)
	p.u32(&r.ECount)
	p.u32(&r.MCount)
	if p.err != nil {
		return nil, fmt.Errorf("decode record: %v", p.err)
	}
	return r, nil
}

// MarshalBinary implements encoding.BinaryMarshaler with the bus layout.
func (r *Record) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FrameSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], r.IP)
	le.PutUint32(buf[4:], r.BP)
	le.PutUint32(buf[8:], r.SP)
	for n, v := range r.words() {
		le.PutUint16(buf[12+n*2:], *v)
	}
	buf[32], buf[33], buf[34], buf[35] = r.OOP, r.COP, r.RIM, r.BIO
	le.PutUint32(buf[36:], r.IMM)
	buf[40] = r.EI8
	le.PutUint32(buf[41:], r.ICount)
	le.PutUint32(buf[45:], r.ECount)
	le.PutUint32(buf[49:], r.MCount)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler with the bus layout.
func (r *Record) UnmarshalBinary(data []byte) error {
	if len(data) < FrameSize {
		return ErrUnderflow
	}
	le := binary.LittleEndian
	r.IP = le.Uint32(data[0:])
	r.BP = le.Uint32(data[4:])
	r.SP = le.Uint32(data[8:])
	for n, v := range r.words() {
		*v = le.Uint16(data[12+n*2:])
	}
	r.OOP, r.COP, r.RIM, r.BIO = data[32], data[33], data[34], data[35]
	r.IMM = le.Uint32(data[36:])
	r.EI8 = data[40]
	r.ICount = le.Uint32(data[41:])
	r.ECount = le.Uint32(data[45:])
	r.MCount = le.Uint32(data[49:])
	return nil
}

func (r *Record) words() []*uint16 {
	return []*uint16{&r.A, &r.B, &r.C, &r.D, &r.I, &r.J, &r.K, &r.L, &r.F, &r.PF}
}
