// Package msgs defines the messages published by the receiver.
package msgs

import (
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/cpudbg/pkg/telemetry"
)

// Frame is a decoded record as published.
type Frame struct {
	ReceiverID  string `protobuf:"bytes,1,opt,name=receiver_id,proto3" json:"receiver_id,omitempty" cbor:"1,keyasint,omitempty"`
	Seq         uint64 `protobuf:"varint,2,opt,name=seq,proto3" json:"seq" cbor:"2,keyasint"`
	TimestampNs int64  `protobuf:"varint,3,opt,name=timestamp_ns,proto3" json:"timestamp_ns" cbor:"3,keyasint"`

	IP uint32 `protobuf:"varint,4,opt,name=ip,proto3" json:"ip" cbor:"4,keyasint"`
	BP uint32 `protobuf:"varint,5,opt,name=bp,proto3" json:"bp" cbor:"5,keyasint"`
	SP uint32 `protobuf:"varint,6,opt,name=sp,proto3" json:"sp" cbor:"6,keyasint"`

	A uint32 `protobuf:"varint,7,opt,name=a,proto3" json:"a" cbor:"7,keyasint"`
	B uint32 `protobuf:"varint,8,opt,name=b,proto3" json:"b" cbor:"8,keyasint"`
	C uint32 `protobuf:"varint,9,opt,name=c,proto3" json:"c" cbor:"9,keyasint"`
	D uint32 `protobuf:"varint,10,opt,name=d,proto3" json:"d" cbor:"10,keyasint"`
	I uint32 `protobuf:"varint,11,opt,name=i,proto3" json:"i" cbor:"11,keyasint"`
	J uint32 `protobuf:"varint,12,opt,name=j,proto3" json:"j" cbor:"12,keyasint"`
	K uint32 `protobuf:"varint,13,opt,name=k,proto3" json:"k" cbor:"13,keyasint"`
	L uint32 `protobuf:"varint,14,opt,name=l,proto3" json:"l" cbor:"14,keyasint"`

	F  uint32 `protobuf:"varint,15,opt,name=f,proto3" json:"f" cbor:"15,keyasint"`
	PF uint32 `protobuf:"varint,16,opt,name=pf,proto3" json:"pf" cbor:"16,keyasint"`

	OOP uint32 `protobuf:"varint,17,opt,name=oop,proto3" json:"oop" cbor:"17,keyasint"`
	COP uint32 `protobuf:"varint,18,opt,name=cop,proto3" json:"cop" cbor:"18,keyasint"`
	RIM uint32 `protobuf:"varint,19,opt,name=rim,proto3" json:"rim" cbor:"19,keyasint"`
	BIO uint32 `protobuf:"varint,20,opt,name=bio,proto3" json:"bio" cbor:"20,keyasint"`
	IMM uint32 `protobuf:"varint,21,opt,name=imm,proto3" json:"imm" cbor:"21,keyasint"`
	EI8 uint32 `protobuf:"varint,22,opt,name=ei8,proto3" json:"ei8" cbor:"22,keyasint"`

	ICount uint32 `protobuf:"varint,23,opt,name=icount,proto3" json:"icount" cbor:"23,keyasint"`
	ECount uint32 `protobuf:"varint,24,opt,name=ecount,proto3" json:"ecount" cbor:"24,keyasint"`
	MCount uint32 `protobuf:"varint,25,opt,name=mcount,proto3" json:"mcount" cbor:"25,keyasint"`
}

// ProtoMessage implements proto.Message.
func (m *Frame) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Frame) Reset() { *m = Frame{} }

// String implements proto.Message.
func (m *Frame) String() string { return proto.CompactTextString(m) }

// NewFrame wraps a record.
func NewFrame(receiverID string, seq uint64, at time.Time, r *telemetry.Record) *Frame {
	return &Frame{
		ReceiverID:  receiverID,
		Seq:         seq,
		TimestampNs: at.UnixNano(),

		IP: r.IP, BP: r.BP, SP: r.SP,
		A: uint32(r.A), B: uint32(r.B), C: uint32(r.C), D: uint32(r.D),
		I: uint32(r.I), J: uint32(r.J), K: uint32(r.K), L: uint32(r.L),
		F: uint32(r.F), PF: uint32(r.PF),
		OOP: uint32(r.OOP), COP: uint32(r.COP), RIM: uint32(r.RIM), BIO: uint32(r.BIO),
		IMM: r.IMM, EI8: uint32(r.EI8),
		ICount: r.ICount, ECount: r.ECount, MCount: r.MCount,
	}
}

// Record extracts the record.
func (m *Frame) Record() *telemetry.Record {
	return &telemetry.Record{
		IP: m.IP, BP: m.BP, SP: m.SP,
		A: uint16(m.A), B: uint16(m.B), C: uint16(m.C), D: uint16(m.D),
		I: uint16(m.I), J: uint16(m.J), K: uint16(m.K), L: uint16(m.L),
		F: uint16(m.F), PF: uint16(m.PF),
		OOP: uint8(m.OOP), COP: uint8(m.COP), RIM: uint8(m.RIM), BIO: uint8(m.BIO),
		IMM: m.IMM, EI8: uint8(m.EI8),
		ICount: m.ICount, ECount: m.ECount, MCount: m.MCount,
	}
}

// Time returns the receive time.
func (m *Frame) Time() time.Time {
	return time.Unix(0, m.TimestampNs)
}

// Meta describes a receiver.
type Meta struct {
	Description string            `json:"description,omitempty"`
	Encoding    string            `json:"encoding"`
	Sampler     string            `json:"sampler,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}
