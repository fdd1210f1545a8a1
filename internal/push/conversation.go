package push

import "github.com/danmuck/pushwire/internal/protocol"

// ReplyResult is one delivery from a conversation's reply subscription.
// Exactly one of Message and Err is meaningful.
type ReplyResult struct {
	Message protocol.Message
	Err     error
}

// Conversation is the owning channel a Push correlates through. It is shared
// across many concurrent pushes and must tolerate interleaved Transmit and
// SubscribeOnce calls from all of them.
type Conversation interface {
	// NextCorrelationID returns a token unique per call. Monotonicity is not
	// required.
	NextCorrelationID() string

	// LoggingName identifies the conversation in diagnostics only.
	LoggingName() string

	// Topic and JoinRef are copied verbatim into outbound envelopes.
	Topic() string
	JoinRef() string

	// Transmit hands one envelope to the transport. A non-nil error means the
	// send failed outright and no reply will arrive.
	Transmit(msg protocol.Message) error

	// SubscribeOnce arms a single-delivery subscription for replyEvent. The
	// returned channel yields the first matching message, or an error if the
	// conversation fails before one arrives, then is closed. Called at most
	// once per push generation.
	SubscribeOnce(replyEvent string) <-chan ReplyResult

	// EmitSyntheticTimeout delivers a timeout-status reply correlated to ref
	// through the same path real replies take.
	EmitSyntheticTimeout(ref string)
}
