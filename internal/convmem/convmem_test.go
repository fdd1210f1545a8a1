package convmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/pushwire/internal/protocol"
	"github.com/danmuck/pushwire/internal/push"
	"github.com/danmuck/pushwire/internal/testutil/testlog"
)

func awaitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestScriptedReplyResolvesPush(t *testing.T) {
	testlog.Start(t)
	conv := New(Config{Topic: "room:lobby"})
	conv.ScriptReply("shout", Reply{Status: protocol.StatusOK, Response: map[string]any{"echo": true}})

	p, err := push.New(conv, push.Config{
		Event:   "shout",
		Payload: push.StructuredPayload(func() any { return map[string]any{"body": "hi"} }),
	})
	if err != nil {
		t.Fatalf("new push: %v", err)
	}

	p.Send()
	resp, err := p.Await(awaitCtx(t))
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if !resp.IsOK() {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSilencedEventForcesTimeout(t *testing.T) {
	testlog.Start(t)
	conv := New(Config{})
	conv.Silence("shout")

	p, err := push.New(conv, push.Config{
		Event:   "shout",
		Payload: push.StructuredPayload(func() any { return nil }),
		Timeout: 30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new push: %v", err)
	}

	p.Send()
	if _, err := p.Await(awaitCtx(t)); !errors.Is(err, push.ErrReplyTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if !p.HasReceived(protocol.StatusTimeout) {
		t.Fatalf("timeout response not recorded")
	}
}

func TestForcedTransmitFailure(t *testing.T) {
	testlog.Start(t)
	conv := New(Config{})
	wantErr := errors.New("backpressure")
	conv.FailTransmit("shout", wantErr)

	p, err := push.New(conv, push.Config{
		Event:   "shout",
		Payload: push.StructuredPayload(func() any { return nil }),
	})
	if err != nil {
		t.Fatalf("new push: %v", err)
	}

	p.Send()
	if _, err := p.Await(awaitCtx(t)); !errors.Is(err, wantErr) {
		t.Fatalf("expected forced transmit error, got %v", err)
	}
}

func TestDownFailsArmedSubscriptionsAndRestoreRecovers(t *testing.T) {
	testlog.Start(t)
	conv := New(Config{})
	conv.Silence("shout")

	p, err := push.New(conv, push.Config{
		Event:   "shout",
		Payload: push.StructuredPayload(func() any { return nil }),
		Timeout: time.Second,
	})
	if err != nil {
		t.Fatalf("new push: %v", err)
	}

	p.Send()
	conv.Down(nil)
	if _, err := p.Await(awaitCtx(t)); !errors.Is(err, ErrConversationDown) {
		t.Fatalf("expected ErrConversationDown, got %v", err)
	}

	// Reconnect: restore, script a reply, and resend the same push.
	conv.Restore()
	conv.ScriptReply("shout", Reply{Status: protocol.StatusOK})
	p.CleanUp()
	p.Resend(0)
	resp, err := p.Await(awaitCtx(t))
	if err != nil {
		t.Fatalf("await after resend: %v", err)
	}
	if !resp.IsOK() {
		t.Fatalf("unexpected response after resend: %+v", resp)
	}
}

func TestLedgerObservesPushLifecycle(t *testing.T) {
	testlog.Start(t)
	ledger := push.NewLedger()
	conv := New(Config{Ledger: ledger})
	conv.ScriptReply("shout", Reply{Status: protocol.StatusOK})

	p, err := push.New(conv, push.Config{
		Event:   "shout",
		Payload: push.StructuredPayload(func() any { return nil }),
	})
	if err != nil {
		t.Fatalf("new push: %v", err)
	}

	p.Send()
	if _, err := p.Await(awaitCtx(t)); err != nil {
		t.Fatalf("await: %v", err)
	}

	entry, ok := ledger.Get(p.Ref())
	if !ok {
		t.Fatalf("ledger missing entry for ref %q", p.Ref())
	}
	if entry.Attempts != 1 || entry.Status != protocol.StatusOK || entry.Pending() {
		t.Fatalf("unexpected ledger entry: %+v", entry)
	}
}

func TestCorrelationIDsAreUnique(t *testing.T) {
	testlog.Start(t)
	conv := New(Config{})
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ref := conv.NextCorrelationID()
		if _, dup := seen[ref]; dup {
			t.Fatalf("duplicate correlation id %q", ref)
		}
		seen[ref] = struct{}{}
	}
}
