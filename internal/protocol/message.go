package protocol

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidMessage = errors.New("protocol: invalid message")

// Message is the envelope handed to a conversation for transmission and
// received back for correlated replies. Payload carries either structured
// data (arbitrary nested values) or a raw []byte blob.
type Message struct {
	Event   string `json:"event"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
	Ref     string `json:"ref"`
	JoinRef string `json:"join_ref,omitempty"`
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.Event) == "" {
		return fmt.Errorf("%w: missing event", ErrInvalidMessage)
	}
	if strings.TrimSpace(m.Ref) == "" {
		return fmt.Errorf("%w: missing ref", ErrInvalidMessage)
	}
	return nil
}

// IsBinary reports whether the envelope carries a raw blob payload.
func (m Message) IsBinary() bool {
	_, ok := m.Payload.([]byte)
	return ok
}

// ReplyBody is the structured body shape a backend uses for correlated
// replies. Both fields are optional on the wire.
type ReplyBody struct {
	Status   string `json:"status"`
	Response any    `json:"response"`
}

// NewReply builds the reply envelope for one correlation id.
func NewReply(topic, ref, status string, response any) Message {
	return Message{
		Event: ReplyEventFor(ref),
		Topic: topic,
		Ref:   ref,
		Payload: map[string]any{
			"status":   status,
			"response": response,
		},
	}
}
