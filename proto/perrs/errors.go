// Package perrs enumerates the sender/receiver-level error taxonomy from
// the protocol's failure semantics: which conditions are locally
// recoverable (discard and keep going) and which must be surfaced to the
// caller as fatal.
package perrs

import "errors"

var (
	// ErrProtocolMismatch names the condition where a frame of the wrong
	// kind turns up where the FSM expected the other one (e.g. a DATA
	// frame at a sender, or an ACK frame at a receiver). Locally
	// recoverable: the FSMs discard such frames without returning it.
	ErrProtocolMismatch = errors.New("perrs: protocol mismatch")

	// ErrTimeout is returned by an endpoint's Recv when no datagram
	// arrived before the configured deadline. Locally recoverable: the
	// sender FSMs retransmit on it.
	ErrTimeout = errors.New("perrs: receive timed out")

	// ErrStaleACK marks an ACK whose ack field is already covered by the
	// sender's current base. Locally recoverable: discard.
	ErrStaleACK = errors.New("perrs: stale ack")

	// ErrTransportFatal wraps an underlying socket error (closed,
	// unreachable peer, ...). Always surfaced to the caller.
	ErrTransportFatal = errors.New("perrs: transport fatal")

	// ErrIntegrity names a failed final-hash comparison (not part of the
	// core protocol). No frame carries a digest and nothing in this module
	// returns it: the CLI's --verify flag only prints each side's digest.
	ErrIntegrity = errors.New("perrs: integrity check failed")
)
