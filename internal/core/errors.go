package core

import "errors"

// Error taxonomy surfaced by the coordinator.
var (
	// ErrAuthExpired means the token was rejected or timed out; it
	// always ends in a forced logout, never a retry.
	ErrAuthExpired = errors.New("auth expired")
	// ErrTransport covers connection drops and handshake failures.
	ErrTransport = errors.New("transport error")
	// ErrSendFailure covers REST rejection or upload failure of an
	// outgoing message; conversation state stays unchanged.
	ErrSendFailure = errors.New("send failed")
	// ErrMembershipFetch means the channel membership list could not
	// be enumerated; the room set degrades to "unknown", not "empty".
	ErrMembershipFetch = errors.New("membership fetch failed")
)
