package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

const defaultWriteTimeout = 5 * time.Second

// Socket implements Transport over a websocket carrying JSON envelopes.
type Socket struct {
	url              string
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	log              *zerolog.Logger

	mu            sync.Mutex
	conn          *websocket.Conn
	token         string
	handlers      map[string][]Handler
	connectFns    []func(reconnected bool)
	disconnectFns []func(err error)
	closed        bool
	cancel        context.CancelFunc
}

// NewSocket builds a disconnected socket for the given endpoint.
func NewSocket(url string, handshakeTimeout time.Duration, logger *zerolog.Logger) *Socket {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &Socket{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		writeTimeout:     defaultWriteTimeout,
		log:              logger,
		handlers:         make(map[string][]Handler),
	}
}

// Connect dials the endpoint and starts the read pump. A handshake
// failure is returned to the caller without retrying.
func (s *Socket) Connect(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		return errors.New("transport: already connected")
	}
	s.closed = false
	s.token = token
	s.mu.Unlock()

	conn, err := s.dial(ctx, token)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	s.notifyConnect(false)
	go s.run(runCtx, conn)
	return nil
}

func (s *Socket) dial(ctx context.Context, token string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.handshakeTimeout)
	defer cancel()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SetToken swaps the bearer token handed to future redials, e.g. after
// a token refresh while the connection is up.
func (s *Socket) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Emit writes one event envelope. Returns ErrNotConnected while the
// socket is down or reconnecting.
func (s *Socket) Emit(event string, payload any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event, err)
		}
		data = raw
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, conn, Envelope{Event: event, Data: data}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// On registers a handler for a named event. Handlers run on the read
// pump goroutine, in transport delivery order.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	s.handlers[event] = append(s.handlers[event], h)
	s.mu.Unlock()
}

func (s *Socket) OnConnect(fn func(reconnected bool)) {
	s.mu.Lock()
	s.connectFns = append(s.connectFns, fn)
	s.mu.Unlock()
}

func (s *Socket) OnDisconnect(fn func(err error)) {
	s.mu.Lock()
	s.disconnectFns = append(s.disconnectFns, fn)
	s.mu.Unlock()
}

// Close tears the connection down and stops any reconnect attempts.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}

// run pumps inbound envelopes and transparently redials on drops until
// Close is called.
func (s *Socket) run(ctx context.Context, conn *websocket.Conn) {
	for {
		err := s.readAll(ctx, conn)
		if ctx.Err() != nil || s.isClosed() {
			return
		}

		s.log.Warn().Err(err).Msg("push connection dropped")
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.notifyDisconnect(err)

		conn = s.redial(ctx)
		if conn == nil {
			return
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.notifyConnect(true)
	}
}

func (s *Socket) readAll(ctx context.Context, conn *websocket.Conn) error {
	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}
		s.dispatch(env)
	}
}

func (s *Socket) dispatch(env Envelope) {
	s.mu.Lock()
	handlers := make([]Handler, len(s.handlers[env.Event]))
	copy(handlers, s.handlers[env.Event])
	s.mu.Unlock()

	if len(handlers) == 0 {
		s.log.Debug().Str("event", env.Event).Msg("no handler for event")
		return
	}
	for _, h := range handlers {
		h(env.Data)
	}
}

func (s *Socket) redial(ctx context.Context) *websocket.Conn {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry until Close

	var conn *websocket.Conn
	op := func() error {
		if s.isClosed() {
			return backoff.Permanent(errors.New("transport closed"))
		}
		c, err := s.dial(ctx, token)
		if err != nil {
			s.log.Debug().Err(err).Msg("redial failed")
			return err
		}
		conn = c
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil
	}
	s.log.Info().Msg("push connection reestablished")
	return conn
}

func (s *Socket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Socket) notifyConnect(reconnected bool) {
	s.mu.Lock()
	fns := make([]func(bool), len(s.connectFns))
	copy(fns, s.connectFns)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(reconnected)
	}
}

func (s *Socket) notifyDisconnect(err error) {
	s.mu.Lock()
	fns := make([]func(error), len(s.disconnectFns))
	copy(fns, s.disconnectFns)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}
