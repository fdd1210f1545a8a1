// Package push owns the request/acknowledgement correlation engine.
//
// Ownership boundary:
// - Push lifecycle: send, resend after reconnect, reset, cleanup
// - exactly-once resolution across reply, timeout, and transport error
// - one-shot awaitable result plus status-keyed callback fan-out
// - reply/timeout bookkeeping primitives: ledger, retry policy, resender
//
// The owning conversation (topic membership, transmission, reply routing) is
// an external collaborator reached through the Conversation interface.
package push
