// Package protocol owns the conversation wire vocabulary.
//
// Ownership boundary:
// - outbound message envelope shape
// - reserved lifecycle event names and reply statuses
// - correlation id to reply-event derivation
//
// Byte-level framing/encoding of envelopes is transport territory and lives
// outside this module.
package protocol
