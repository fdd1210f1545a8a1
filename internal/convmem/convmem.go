// Package convmem is an in-memory Conversation used by the demo tools and
// tests. Replies are scripted per event and delivered through the same path
// synthetic timeouts take, mirroring how a real conversation routes both.
package convmem

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/pushwire/internal/diag"
	"github.com/danmuck/pushwire/internal/protocol"
	"github.com/danmuck/pushwire/internal/push"
)

var ErrConversationDown = errors.New("convmem: conversation down")

// Reply scripts the backend's answer for one event.
type Reply struct {
	Status   string
	Response any
	Delay    time.Duration
}

type Config struct {
	Topic       string
	JoinRef     string
	LoggingName string
	Logger      diag.Logger
	Ledger      *push.Ledger
}

// Conversation is a scriptable loopback adapter. Safe for concurrent use by
// many pushes.
type Conversation struct {
	cfg Config
	log diag.Logger

	refCounter atomic.Uint64

	mu          sync.Mutex
	subscribers map[string]chan push.ReplyResult
	scripts     map[string]Reply
	transmitErr map[string]error
	silent      map[string]struct{}
	downErr     error
}

func New(cfg Config) *Conversation {
	if strings.TrimSpace(cfg.Topic) == "" {
		cfg.Topic = "room:loopback"
	}
	if strings.TrimSpace(cfg.LoggingName) == "" {
		cfg.LoggingName = cfg.Topic
	}
	if cfg.Logger == nil {
		cfg.Logger = diag.Nop()
	}
	return &Conversation{
		cfg:         cfg,
		log:         cfg.Logger,
		subscribers: make(map[string]chan push.ReplyResult),
		scripts:     make(map[string]Reply),
		transmitErr: make(map[string]error),
		silent:      make(map[string]struct{}),
	}
}

// ScriptReply sets the reply returned for transmissions of event.
func (c *Conversation) ScriptReply(event string, reply Reply) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts[event] = reply
}

// FailTransmit forces Transmit to fail for event.
func (c *Conversation) FailTransmit(event string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transmitErr[event] = err
}

// Silence accepts transmissions of event but never replies, forcing the
// push's timeout path.
func (c *Conversation) Silence(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.silent[event] = struct{}{}
}

// Down fails the conversation: armed subscriptions receive err immediately
// and later ones fail on arrival, as a disconnect would.
func (c *Conversation) Down(err error) {
	if err == nil {
		err = ErrConversationDown
	}
	c.mu.Lock()
	c.downErr = err
	subs := c.subscribers
	c.subscribers = make(map[string]chan push.ReplyResult)
	c.mu.Unlock()

	for _, ch := range subs {
		ch <- push.ReplyResult{Err: err}
		close(ch)
	}
}

// Restore clears a previous Down so resent pushes can complete.
func (c *Conversation) Restore() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.downErr = nil
}

func (c *Conversation) NextCorrelationID() string {
	return strconv.FormatUint(c.refCounter.Add(1), 10)
}

func (c *Conversation) LoggingName() string { return c.cfg.LoggingName }
func (c *Conversation) Topic() string       { return c.cfg.Topic }
func (c *Conversation) JoinRef() string     { return c.cfg.JoinRef }

func (c *Conversation) Transmit(msg protocol.Message) error {
	c.track(msg, time.Now())

	c.mu.Lock()
	if c.downErr != nil {
		err := c.downErr
		c.mu.Unlock()
		c.markAttempt(msg.Ref, err)
		return err
	}
	if err, ok := c.transmitErr[msg.Event]; ok {
		c.mu.Unlock()
		c.markAttempt(msg.Ref, err)
		return err
	}
	if _, ok := c.silent[msg.Event]; ok {
		c.mu.Unlock()
		c.markAttempt(msg.Ref, nil)
		c.log.Debugf("convmem %s: swallowing %q ref=%s", c.cfg.LoggingName, msg.Event, msg.Ref)
		return nil
	}
	script, scripted := c.scripts[msg.Event]
	c.mu.Unlock()
	c.markAttempt(msg.Ref, nil)

	if !scripted {
		script = Reply{Status: protocol.StatusOK}
	}
	reply := protocol.NewReply(c.cfg.Topic, msg.Ref, script.Status, script.Response)
	if script.Delay <= 0 {
		go c.deliver(reply)
		return nil
	}
	time.AfterFunc(script.Delay, func() {
		c.deliver(reply)
	})
	return nil
}

func (c *Conversation) SubscribeOnce(replyEvent string) <-chan push.ReplyResult {
	ch := make(chan push.ReplyResult, 1)
	c.mu.Lock()
	if c.downErr != nil {
		err := c.downErr
		c.mu.Unlock()
		ch <- push.ReplyResult{Err: err}
		close(ch)
		return ch
	}
	c.subscribers[replyEvent] = ch
	c.mu.Unlock()
	return ch
}

func (c *Conversation) EmitSyntheticTimeout(ref string) {
	c.deliver(protocol.NewReply(c.cfg.Topic, ref, protocol.StatusTimeout, map[string]any{}))
}

// deliver routes one correlated message to its armed subscription, if any.
// Each subscription receives at most one delivery.
func (c *Conversation) deliver(msg protocol.Message) {
	c.mu.Lock()
	ch, ok := c.subscribers[msg.Event]
	if ok {
		delete(c.subscribers, msg.Event)
	}
	c.mu.Unlock()

	c.resolveLedger(msg)
	if !ok {
		c.log.Debugf("convmem %s: no subscriber for %q", c.cfg.LoggingName, msg.Event)
		return
	}
	ch <- push.ReplyResult{Message: msg}
	close(ch)
}

func (c *Conversation) track(msg protocol.Message, at time.Time) {
	if c.cfg.Ledger == nil {
		return
	}
	if _, ok := c.cfg.Ledger.Get(msg.Ref); !ok {
		c.cfg.Ledger.Track(push.Entry{
			Ref:      msg.Ref,
			Event:    msg.Event,
			Topic:    msg.Topic,
			QueuedAt: at,
		})
	}
}

func (c *Conversation) markAttempt(ref string, err error) {
	if c.cfg.Ledger == nil {
		return
	}
	lastErr := ""
	if err != nil {
		lastErr = err.Error()
	}
	c.cfg.Ledger.MarkAttempt(ref, time.Now(), lastErr)
}

func (c *Conversation) resolveLedger(msg protocol.Message) {
	if c.cfg.Ledger == nil || !protocol.IsReplyEvent(msg.Event) {
		return
	}
	resp := push.ResponseFromMessage(msg)
	c.cfg.Ledger.Resolve(msg.Ref, resp.Status, time.Now())
}
