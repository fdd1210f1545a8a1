package push

import (
	"errors"
	"testing"

	"github.com/danmuck/pushwire/internal/protocol"
	"github.com/danmuck/pushwire/internal/testutil/testlog"
)

func TestResponseFromMessage(t *testing.T) {
	testlog.Start(t)
	msg := protocol.NewReply("room:test", "4", protocol.StatusOK, map[string]any{"x": 1})
	resp := ResponseFromMessage(msg)
	if !resp.IsOK() {
		t.Fatalf("unexpected status: %q", resp.Status)
	}
	payload, ok := resp.Payload.(map[string]any)
	if !ok || payload["x"] != 1 {
		t.Fatalf("unexpected payload: %+v", resp.Payload)
	}
}

func TestResponseFromMessageToleratesMissingKeys(t *testing.T) {
	testlog.Start(t)
	resp := ResponseFromMessage(protocol.Message{
		Event:   protocol.ReplyEventFor("4"),
		Ref:     "4",
		Payload: map[string]any{},
	})
	if resp.Status != "" || resp.Payload != nil {
		t.Fatalf("absent keys should yield zero values, got %+v", resp)
	}

	resp = ResponseFromMessage(protocol.Message{Event: protocol.ReplyEventFor("5"), Ref: "5"})
	if resp.Status != "" || resp.Payload != nil {
		t.Fatalf("non-structured body should yield zero values, got %+v", resp)
	}
}

func TestResponseEqualIsStructural(t *testing.T) {
	testlog.Start(t)
	a := Response{Status: "ok", Payload: map[string]any{"x": []any{1, 2}}}
	b := Response{Status: "ok", Payload: map[string]any{"x": []any{1, 2}}}
	if !a.Equal(b) {
		t.Fatalf("structurally equal responses compared unequal")
	}
	c := Response{Status: "ok", Payload: map[string]any{"x": []any{1, 3}}}
	if a.Equal(c) {
		t.Fatalf("different payloads compared equal")
	}
	d := Response{Status: "error", Payload: a.Payload}
	if a.Equal(d) {
		t.Fatalf("different statuses compared equal")
	}
}

func TestTimeoutResponsePredicate(t *testing.T) {
	testlog.Start(t)
	resp := TimeoutResponse()
	if !resp.IsTimeout() || resp.IsOK() || resp.IsError() {
		t.Fatalf("unexpected predicates for %+v", resp)
	}
}

func TestPayloadVariantExclusivity(t *testing.T) {
	testlog.Start(t)
	if err := (Payload{}).validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("zero payload should be invalid, got %v", err)
	}
	if err := StructuredPayload(nil).validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("nil producer should be invalid, got %v", err)
	}
	if err := BinaryPayload(nil).validate(); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("empty blob should be invalid, got %v", err)
	}

	structured := StructuredPayload(func() any { return map[string]any{"k": "v"} })
	if structured.IsBinary() {
		t.Fatalf("structured payload misreported as binary")
	}
	if got := structured.materialize(); got.(map[string]any)["k"] != "v" {
		t.Fatalf("producer not invoked: %+v", got)
	}

	binary := BinaryPayload([]byte{0xDE, 0xAD})
	if !binary.IsBinary() {
		t.Fatalf("binary payload misreported")
	}
	if got := binary.materialize().([]byte); len(got) != 2 {
		t.Fatalf("unexpected blob: %v", got)
	}
}

func TestStructuredPayloadIsLazy(t *testing.T) {
	testlog.Start(t)
	conv := newFakeConversation()
	invocations := 0
	p, err := New(conv, Config{
		Event: "shout",
		Payload: StructuredPayload(func() any {
			invocations++
			return map[string]any{"n": invocations}
		}),
	})
	if err != nil {
		t.Fatalf("new push: %v", err)
	}
	if invocations != 0 {
		t.Fatalf("producer invoked before send")
	}
	p.Send()
	if invocations != 1 {
		t.Fatalf("producer invoked %d times", invocations)
	}
}
