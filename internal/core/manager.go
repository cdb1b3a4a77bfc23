package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/teamchat-client/internal/api"
	"github.com/vovakirdan/teamchat-client/internal/metrics"
	"github.com/vovakirdan/teamchat-client/internal/session"
	"github.com/vovakirdan/teamchat-client/internal/transport"
)

// State is the push connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// ChannelLister enumerates channel memberships for resubscription.
type ChannelLister interface {
	MemberChannels(ctx context.Context, userID string) ([]api.Channel, error)
}

// ManagerDeps collects the collaborators the lifecycle manager wires
// together.
type ManagerDeps struct {
	Transport  transport.Transport
	Sessions   session.Provider
	Tracker    *Tracker
	Dispatcher *Dispatcher
	Notifier   *Notifier
	Sender     *Sender
	Channels   ChannelLister
	Logout     session.LogoutSink
	Toast      ToastSink
	Metrics    *metrics.Metrics
	Log        *zerolog.Logger

	HandshakeTimeout time.Duration
}

// Manager owns the single push connection tied to the current session.
// A present session yields exactly one authenticated connection; an
// absent session guarantees none.
type Manager struct {
	transport  transport.Transport
	sessions   session.Provider
	tracker    *Tracker
	dispatcher *Dispatcher
	notifier   *Notifier
	sender     *Sender
	channels   ChannelLister
	logout     session.LogoutSink
	toast      ToastSink
	metrics    *metrics.Metrics
	log        *zerolog.Logger

	handshakeTimeout time.Duration

	mu         sync.Mutex
	state      State
	userID     string
	loggingOut bool
	stateFns   []func(State)
}

// NewManager builds the lifecycle manager. Call Start to begin
// observing the session.
func NewManager(deps ManagerDeps) *Manager {
	timeout := deps.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Manager{
		transport:        deps.Transport,
		sessions:         deps.Sessions,
		tracker:          deps.Tracker,
		dispatcher:       deps.Dispatcher,
		notifier:         deps.Notifier,
		sender:           deps.Sender,
		channels:         deps.Channels,
		logout:           deps.Logout,
		toast:            deps.Toast,
		metrics:          deps.Metrics,
		log:              deps.Log,
		handshakeTimeout: timeout,
		state:            StateDisconnected,
	}
}

// Start hooks the manager into the transport and the session provider
// and connects immediately if a session is already live.
func (m *Manager) Start() {
	m.transport.OnConnect(m.transportConnected)
	m.transport.OnDisconnect(m.transportDropped)
	m.dispatcher.SetReconnectHook(m.resubscribe)
	m.dispatcher.BindTransport(m.transport)
	m.sessions.OnChange(m.sessionChanged)
	if s := m.sessions.Current(); s != nil {
		m.sessionChanged(s)
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnStateChange registers a callback fired on every transition.
func (m *Manager) OnStateChange(fn func(State)) {
	m.mu.Lock()
	m.stateFns = append(m.stateFns, fn)
	m.mu.Unlock()
}

// ForceLogout tears the session down exactly once per live session,
// surfacing the session-expired condition to the UI collaborator.
func (m *Manager) ForceLogout(reason string) {
	m.mu.Lock()
	if m.loggingOut || m.sessions.Current() == nil {
		m.mu.Unlock()
		return
	}
	m.loggingOut = true
	m.mu.Unlock()

	m.log.Info().Str("reason", reason).Msg("forcing logout")
	m.toast.Notify("Session expired. Please log in again.")
	m.logout.ForceLogout(reason)
}

// Close tears the connection down without touching the session, e.g.
// on process shutdown.
func (m *Manager) Close() error {
	m.setState(StateClosed)
	m.metrics.ConnectionUp.Set(0)
	return m.transport.Close()
}

func (m *Manager) sessionChanged(s *session.Session) {
	if s == nil {
		m.teardown()
		return
	}

	m.mu.Lock()
	m.loggingOut = false
	sameUser := s.UserID == m.userID
	live := m.state == StateConnecting || m.state == StateConnected || m.state == StateReconnecting
	m.userID = s.UserID
	m.mu.Unlock()

	if live && sameUser {
		// Token refresh for the already-connected user: the live
		// socket stays up, only future redials need the new token.
		m.transport.SetToken(s.Token)
		m.log.Debug().Str("user_id", s.UserID).Msg("session token refreshed, connection kept")
		return
	}
	if live {
		// A different user replaced the session without a logout in
		// between; release the old connection and its room state first.
		if err := m.transport.Close(); err != nil {
			m.log.Warn().Err(err).Msg("transport close failed")
		}
		m.tracker.Reset()
		m.notifier.Reset()
	}

	m.tracker.Bind(s.UserID)
	m.notifier.Bind(s.UserID)
	m.dispatcher.Bind(s.UserID)
	if m.sender != nil {
		m.sender.Bind(s.UserID)
	}

	m.setState(StateConnecting)

	ctx, cancel := context.WithTimeout(context.Background(), m.handshakeTimeout)
	defer cancel()

	if err := m.transport.Connect(ctx, s.Token); err != nil {
		// Initial auth/handshake failure is reported, not retried.
		m.log.Error().Err(err).Msg("push connection failed")
		m.toast.Notify("Could not connect to chat. Please try again.")
		m.setState(StateDisconnected)
		return
	}
	// transportConnected(false) ran inside Connect and completed the
	// resubscription; state is Connected by now.
}

func (m *Manager) teardown() {
	m.mu.Lock()
	already := m.state == StateClosed
	m.mu.Unlock()
	if already {
		return
	}

	m.mu.Lock()
	m.userID = ""
	m.mu.Unlock()
	m.setState(StateClosed)
	m.metrics.ConnectionUp.Set(0)
	if err := m.transport.Close(); err != nil {
		m.log.Warn().Err(err).Msg("transport close failed")
	}
	m.tracker.Reset()
	m.notifier.Reset()
	m.log.Info().Msg("session ended, push connection released")
}

func (m *Manager) transportConnected(reconnected bool) {
	if m.sessions.Current() == nil {
		return
	}
	if reconnected {
		m.metrics.Reconnects.Inc()
		m.dispatcher.Dispatch(InboundEvent{Kind: EventReconnect})
		return
	}
	m.resubscribe()
}

func (m *Manager) transportDropped(err error) {
	if m.sessions.Current() == nil {
		return
	}
	m.tracker.SetConnected(false)
	m.metrics.ConnectionUp.Set(0)
	m.log.Warn().Err(err).Msg("push connection lost, reconnecting")
	m.dispatcher.Dispatch(InboundEvent{Kind: EventDisconnect})
	m.setState(StateReconnecting)
}

// resubscribe re-issues all room subscriptions. The connection is not
// reported Connected until this completes.
func (m *Manager) resubscribe() {
	s := m.sessions.Current()
	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.handshakeTimeout)
	defer cancel()

	var channelIDs []string
	chs, err := m.channels.MemberChannels(ctx, s.UserID)
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		// The unauthorized hook already routed to ForceLogout.
		return
	case err != nil:
		// Degrade to the known set, never to empty.
		m.log.Error().Err(err).Msg("membership fetch failed, keeping tracked rooms")
	default:
		channelIDs = make([]string, 0, len(chs))
		for _, ch := range chs {
			channelIDs = append(channelIDs, ch.ID)
		}
	}

	if err := m.tracker.Resubscribe(channelIDs); err != nil {
		m.log.Warn().Err(err).Msg("room resubscription incomplete")
	}

	m.metrics.ConnectionUp.Set(1)
	m.setState(StateConnected)
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	if m.state == next {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = next
	fns := make([]func(State), len(m.stateFns))
	copy(fns, m.stateFns)
	m.mu.Unlock()

	m.log.Debug().Str("from", string(prev)).Str("to", string(next)).Msg("connection state changed")
	for _, fn := range fns {
		fn(next)
	}
}
