package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/pushwire/internal/diag"
	"github.com/danmuck/pushwire/internal/observability"
	"github.com/danmuck/pushwire/internal/protocol"
)

var (
	ErrNilConversation = errors.New("push: conversation required")
	ErrMissingEvent    = errors.New("push: event required for structured payloads")
	ErrReplyTimeout    = errors.New("push: reply timeout")
)

// DefaultTimeout bounds the reply wait when no explicit timeout is configured.
const DefaultTimeout = 10 * time.Second

// Config describes one outbound operation at construction time.
type Config struct {
	Event   string
	Payload Payload
	Timeout time.Duration
	Logger  diag.Logger
}

// Push owns one outbound operation and its reply/timeout lifecycle. A push is
// driven by its conversation but tolerates the three completion sources
// (reply, timeout, transport error) racing from separate goroutines.
type Push struct {
	conv    Conversation
	event   string
	payload Payload
	log     diag.Logger

	mu            sync.Mutex
	timeout       time.Duration
	ref           string
	replyEvent    string
	sent          bool
	sentAt        time.Time
	awaitingReply bool
	lastResponse  *Response
	callbacks     map[string][]func(Response)
	result        *resultSlot
	timer         *time.Timer
}

func New(conv Conversation, cfg Config) (*Push, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	if err := cfg.Payload.validate(); err != nil {
		return nil, err
	}
	event := strings.TrimSpace(cfg.Event)
	if event == "" && !cfg.Payload.IsBinary() {
		return nil, ErrMissingEvent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = diag.Nop()
	}
	return &Push{
		conv:      conv,
		event:     event,
		payload:   cfg.Payload,
		log:       cfg.Logger,
		timeout:   cfg.Timeout,
		callbacks: make(map[string][]func(Response)),
		result:    newResultSlot(),
	}, nil
}

// Send arms the timeout and hands the envelope to the conversation. A push
// whose last outcome was a timeout is dead until Reset; Send is then a warned
// no-op. A transmit failure resolves the push immediately with the raw error
// instead of waiting for the timer.
func (p *Push) Send() {
	p.mu.Lock()
	if p.lastResponse != nil && p.lastResponse.IsTimeout() {
		p.mu.Unlock()
		p.log.Warnf("push %s/%s: ignoring send, last outcome was a timeout (reset first)",
			p.conv.LoggingName(), p.event)
		return
	}
	p.sent = true
	p.sentAt = time.Now()
	p.awaitingReply = false
	p.startTimeoutLocked()
	msg := protocol.Message{
		Event:   p.event,
		Topic:   p.conv.Topic(),
		Ref:     p.refLocked(),
		JoinRef: p.conv.JoinRef(),
	}
	p.mu.Unlock()

	// Built after the timer is armed so a payload producer that panics still
	// leaves the push subject to timeout bookkeeping.
	msg.Payload = p.payload.materialize()

	if err := p.conv.Transmit(msg); err != nil {
		p.log.Warnf("push %s/%s: transmit failed: %v", p.conv.LoggingName(), p.event, err)
		p.resolveError(err)
		return
	}
	observability.RecordPushSent(p.conv.LoggingName(), p.eventLabel())
}

// Resend re-transmits after a reconnect. A positive timeout overrides the
// configured one. A previously sent push is Reset first so the retry gets a
// fresh correlation id; an unsent push behaves exactly like Send.
func (p *Push) Resend(timeout time.Duration) {
	p.mu.Lock()
	if timeout > 0 {
		p.timeout = timeout
	}
	wasSent := p.sent
	p.mu.Unlock()

	if wasSent {
		p.Reset()
	}
	p.Send()
}

// Reset cancels the timer and invalidates the generation: correlation id,
// reply event, last response, and sent flag. Registered callbacks and the
// result slot persist so existing waiters observe the retried outcome.
func (p *Push) Reset() {
	p.CancelTimeout()
	p.mu.Lock()
	p.ref = ""
	p.replyEvent = ""
	p.lastResponse = nil
	p.sent = false
	p.awaitingReply = false
	p.mu.Unlock()
}

// CleanUp abandons a previous attempt's listeners: iff the push was sent, all
// callbacks are dropped and the result slot is replaced with a fresh one.
func (p *Push) CleanUp() {
	p.mu.Lock()
	if p.sent {
		p.callbacks = make(map[string][]func(Response))
		p.result = newResultSlot()
	}
	p.mu.Unlock()
}

// StartTimeout idempotently arms the reply subscription and the single-shot
// timer for the current generation.
func (p *Push) StartTimeout() {
	p.mu.Lock()
	p.startTimeoutLocked()
	p.mu.Unlock()
}

func (p *Push) startTimeoutLocked() {
	if !p.awaitingReply {
		replies := p.conv.SubscribeOnce(p.replyEventLocked())
		go p.consumeReply(replies)
		p.awaitingReply = true
	}
	if p.timer != nil {
		return
	}
	ref := p.refLocked()
	p.timer = time.AfterFunc(p.timeout, func() {
		p.mu.Lock()
		p.timer = nil
		p.mu.Unlock()
		observability.RecordTimeoutFired(p.conv.LoggingName(), p.eventLabel())
		p.conv.EmitSyntheticTimeout(ref)
	})
}

// CancelTimeout stops and clears the timer; idempotent. A cancelled timer
// never emits its synthetic timeout.
func (p *Push) CancelTimeout() {
	p.mu.Lock()
	timer := p.timer
	p.timer = nil
	p.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// OnReply appends a callback for one status tag. Safe before and after Send.
// Callbacks registered after resolution never fire; there is no replay.
func (p *Push) OnReply(status string, fn func(Response)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	p.callbacks[status] = append(p.callbacks[status], fn)
	p.mu.Unlock()
}

// Await suspends until the push resolves or ctx ends. All awaiters observe
// the same outcome. A timeout resolution surfaces as ErrReplyTimeout and a
// transport failure as the raw transmit error.
func (p *Push) Await(ctx context.Context) (Response, error) {
	p.mu.Lock()
	slot := p.result
	p.mu.Unlock()
	return slot.await(ctx)
}

// HasReceived reports whether the last recorded response carries status.
func (p *Push) HasReceived(status string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastResponse != nil && p.lastResponse.Status == status
}

// Trigger resolves the push with resp. The result slot transition is a single
// compare-and-resolve; a duplicate is logged and dropped, never re-delivered.
// The slot resolves before any status callback runs, and dispatch invokes the
// snapshot registered strictly before this resolution, in registration order.
func (p *Push) Trigger(resp Response) {
	p.mu.Lock()
	p.lastResponse = &resp
	slot := p.result
	replyEvent := p.replyEvent

	var resolved bool
	if resp.IsTimeout() {
		resolved = slot.fail(fmt.Errorf("%w: %s after %s", ErrReplyTimeout, p.event, p.timeout))
	} else {
		resolved = slot.complete(resp)
	}
	if !resolved {
		p.mu.Unlock()
		observability.RecordDuplicateResolution(p.conv.LoggingName())
		p.log.Warnf("push %s/%s: duplicate resolution dropped status=%q reply_event=%q",
			p.conv.LoggingName(), p.event, resp.Status, replyEvent)
		return
	}
	matched := p.callbacks[resp.Status]
	p.callbacks = make(map[string][]func(Response))
	var sinceSend time.Duration
	if !p.sentAt.IsZero() {
		sinceSend = time.Since(p.sentAt)
	}
	p.mu.Unlock()

	observability.RecordPushResolved(p.conv.LoggingName(), resp.Status, sinceSend)
	for _, cb := range matched {
		p.invoke(cb, resp)
	}
}

func (p *Push) consumeReply(replies <-chan ReplyResult) {
	r, ok := <-replies
	if !ok {
		return
	}
	if r.Err != nil {
		p.resolveError(r.Err)
		return
	}
	p.resolveReply(r.Message)
}

// resolveReply handles one correlated message. Messages whose event does not
// equal the current reply event belong to a prior generation and are dropped.
func (p *Push) resolveReply(msg protocol.Message) {
	p.CancelTimeout()
	p.mu.Lock()
	match := p.replyEvent != "" && msg.Event == p.replyEvent
	p.mu.Unlock()
	if !match {
		p.log.Debugf("push %s/%s: dropping reply for stale event %q",
			p.conv.LoggingName(), p.event, msg.Event)
		return
	}
	p.Trigger(ResponseFromMessage(msg))
}

// resolveError handles a transport-level failure. Join pushes swallow these:
// join failures are expected to resurface through the normal reply path.
func (p *Push) resolveError(err error) {
	p.CancelTimeout()
	if p.event == protocol.EventJoin {
		p.log.Debugf("push %s/%s: suppressing transport error, join outcome arrives via reply: %v",
			p.conv.LoggingName(), p.event, err)
		return
	}
	p.mu.Lock()
	slot := p.result
	failed := slot.fail(err)
	if failed {
		p.callbacks = make(map[string][]func(Response))
	}
	var sinceSend time.Duration
	if !p.sentAt.IsZero() {
		sinceSend = time.Since(p.sentAt)
	}
	p.mu.Unlock()

	if failed {
		observability.RecordPushResolved(p.conv.LoggingName(), "transport_error", sinceSend)
	} else {
		p.log.Debugf("push %s/%s: transport error after resolution dropped: %v",
			p.conv.LoggingName(), p.event, err)
	}
}

func (p *Push) invoke(cb func(Response), resp Response) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warnf("push %s/%s: reply callback panic isolated: %v",
				p.conv.LoggingName(), p.event, r)
		}
	}()
	cb(resp)
}

// Ref returns the correlation id, allocating one from the conversation on
// first access. The derived reply event is produced and invalidated with it.
func (p *Push) Ref() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refLocked()
}

func (p *Push) refLocked() string {
	if p.ref == "" {
		p.ref = p.conv.NextCorrelationID()
		p.replyEvent = protocol.ReplyEventFor(p.ref)
	}
	return p.ref
}

func (p *Push) replyEventLocked() string {
	p.refLocked()
	return p.replyEvent
}

func (p *Push) Event() string { return p.event }

func (p *Push) Sent() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

func (p *Push) Timeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timeout
}

func (p *Push) eventLabel() string {
	if p.event == "" {
		return "_binary"
	}
	return p.event
}
