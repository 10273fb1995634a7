// Package media persists trajectory point payloads and hands back opaque
// references describing where and how each payload is stored.
//
// Payloads come in exactly two kinds: Structured (a verbatim JSON document)
// and Array (an N-dimensional numeric array). A Reference never embeds the
// payload itself — array payloads such as image frames are orders of
// magnitude larger than the point metadata that indexes them, so they live
// in standalone files addressed by path.
package media

import (
	"encoding/json"
	"fmt"
)

// Type classifies the content of a payload. TypeJSON payloads are stored
// structured-inline; every other type is an array stored externally.
type Type string

const (
	TypeImage Type = "image"
	TypeAudio Type = "audio"
	TypeVideo Type = "video"
	TypeText  Type = "text"
	TypeArray Type = "array"
	TypeJSON  Type = "json"
)

// Structured returns true when payloads of this type are stored as JSON
// documents rather than array files.
func (t Type) Structured() bool {
	return t == TypeJSON
}

// Payload is the two-variant union of storable data. The interface is
// sealed: Structured and *Array are the only implementations.
type Payload interface {
	payloadKind() Type
}

// Structured is a JSON document payload, held verbatim so that a
// store/load round trip is bit-for-bit.
type Structured struct {
	Doc json.RawMessage
}

func (Structured) payloadKind() Type { return TypeJSON }

// NewStructured marshals v into a Structured payload.
func NewStructured(v any) (Structured, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return Structured{}, fmt.Errorf("media: marshal structured payload: %w", err)
	}
	return Structured{Doc: doc}, nil
}

// Decode unmarshals the document into v.
func (s Structured) Decode(v any) error {
	if err := json.Unmarshal(s.Doc, v); err != nil {
		return fmt.Errorf("media: decode structured payload: %w", err)
	}
	return nil
}

func (*Array) payloadKind() Type { return TypeArray }
