package push

import "errors"

var ErrInvalidPayload = errors.New("push: exactly one of structured or binary payload required")

type payloadKind int

const (
	payloadUnset payloadKind = iota
	payloadStructured
	payloadBinary
)

// Payload is the tagged outbound payload variant: a lazily invoked structured
// producer or a fixed binary blob.
type Payload struct {
	kind     payloadKind
	producer func() any
	binary   []byte
}

// StructuredPayload defers payload construction to send time. The producer is
// invoked once per transmission attempt.
func StructuredPayload(producer func() any) Payload {
	return Payload{kind: payloadStructured, producer: producer}
}

// BinaryPayload wraps a fixed blob for framing-only pushes.
func BinaryPayload(data []byte) Payload {
	return Payload{kind: payloadBinary, binary: data}
}

func (p Payload) IsBinary() bool { return p.kind == payloadBinary }

func (p Payload) validate() error {
	switch p.kind {
	case payloadStructured:
		if p.producer == nil {
			return ErrInvalidPayload
		}
	case payloadBinary:
		if len(p.binary) == 0 {
			return ErrInvalidPayload
		}
	default:
		return ErrInvalidPayload
	}
	return nil
}

// materialize resolves the variant into the wire payload value.
func (p Payload) materialize() any {
	if p.kind == payloadBinary {
		return p.binary
	}
	return p.producer()
}
