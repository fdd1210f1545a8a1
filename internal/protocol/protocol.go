package protocol

import "strings"

// Reserved lifecycle event names. Backends address replies and lifecycle
// transitions with these; ordinary operation events must not reuse them.
const (
	EventJoin  = "phx_join"
	EventLeave = "phx_leave"
	EventReply = "phx_reply"
	EventError = "phx_error"
	EventClose = "phx_close"
)

// Reply status tags. Any string tag is legal on the wire; these are the
// conventional vocabulary.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

const replyEventPrefix = "chan_reply_"

// ReplyEventFor derives the reply event name for one correlation id. The
// derivation is injective over ids and cannot collide with operation event
// names because of the reserved prefix.
func ReplyEventFor(ref string) string {
	return replyEventPrefix + ref
}

// IsReplyEvent reports whether event addresses a correlated reply.
func IsReplyEvent(event string) bool {
	return strings.HasPrefix(event, replyEventPrefix)
}

// IsReservedEvent reports whether event belongs to the lifecycle vocabulary.
func IsReservedEvent(event string) bool {
	switch event {
	case EventJoin, EventLeave, EventReply, EventError, EventClose:
		return true
	}
	return IsReplyEvent(event)
}
