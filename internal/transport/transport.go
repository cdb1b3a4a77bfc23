package transport

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotConnected is returned by Emit when no connection is live.
var ErrNotConnected = errors.New("transport: not connected")

// Handler consumes the raw payload of a named event.
type Handler func(data json.RawMessage)

// Transport is a bidirectional event channel to the push API,
// authenticated at connect time with the session token. The connection
// lifecycle manager holds the only handle; everything else goes through
// Emit/On.
type Transport interface {
	// Connect dials and authenticates. Errors are returned to the
	// caller and not retried; drops after a successful Connect are
	// retried internally with backoff.
	Connect(ctx context.Context, token string) error
	// SetToken replaces the token used for subsequent redials. The
	// live connection is not re-authenticated.
	SetToken(token string)
	Emit(event string, payload any) error
	On(event string, h Handler)
	// OnConnect fires after every successful (re)connect. reconnected
	// is false for the initial Connect.
	OnConnect(fn func(reconnected bool))
	// OnDisconnect fires when an established connection drops.
	OnDisconnect(fn func(err error))
	Close() error
}
