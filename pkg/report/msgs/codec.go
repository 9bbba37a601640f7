package msgs

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/protobuf/proto"
)

// Encoding serializes Frames.
type Encoding interface {
	Name() string
	ContentType() string
	Marshal(*Frame) ([]byte, error)
	Unmarshal([]byte, *Frame) error
}

// Encoding names
const (
	EncodingProto = "proto"
	EncodingCBOR  = "cbor"
	EncodingJSON  = "json"
)

type protoEncoding struct{}

func (protoEncoding) Name() string                          { return EncodingProto }
func (protoEncoding) ContentType() string                   { return "application/x-protobuf" }
func (protoEncoding) Marshal(f *Frame) ([]byte, error)      { return proto.Marshal(f) }
func (protoEncoding) Unmarshal(data []byte, f *Frame) error { return proto.Unmarshal(data, f) }

type cborEncoding struct {
	em cbor.EncMode
}

func newCBOREncoding() *cborEncoding {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return &cborEncoding{em: em}
}

func (e *cborEncoding) Name() string                          { return EncodingCBOR }
func (e *cborEncoding) ContentType() string                   { return "application/cbor" }
func (e *cborEncoding) Marshal(f *Frame) ([]byte, error)      { return e.em.Marshal(f) }
func (e *cborEncoding) Unmarshal(data []byte, f *Frame) error { return cbor.Unmarshal(data, f) }

type jsonEncoding struct{}

func (jsonEncoding) Name() string                          { return EncodingJSON }
func (jsonEncoding) ContentType() string                   { return "application/json" }
func (jsonEncoding) Marshal(f *Frame) ([]byte, error)      { return json.Marshal(f) }
func (jsonEncoding) Unmarshal(data []byte, f *Frame) error { return json.Unmarshal(data, f) }

var encodings = map[string]Encoding{
	EncodingProto: protoEncoding{},
	EncodingCBOR:  newCBOREncoding(),
	EncodingJSON:  jsonEncoding{},
}

// EncodingByName finds an Encoding.
func EncodingByName(name string) (Encoding, error) {
	if enc, ok := encodings[name]; ok {
		return enc, nil
	}
	return nil, fmt.Errorf("unknown encoding %q", name)
}
