package core

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/teamchat-client/internal/api"
	"github.com/vovakirdan/teamchat-client/internal/metrics"
	"github.com/vovakirdan/teamchat-client/internal/transport"
)

// Dispatcher decodes raw transport payloads into InboundEvents and
// routes each kind exactly once.
type Dispatcher struct {
	log           *zerolog.Logger
	metrics       *metrics.Metrics
	notifier      *Notifier
	conversations *Conversations

	mu        sync.Mutex
	userID    string
	reconnect func()
}

// NewDispatcher wires the routing stage.
func NewDispatcher(notifier *Notifier, conversations *Conversations, m *metrics.Metrics, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:           logger,
		metrics:       m,
		notifier:      notifier,
		conversations: conversations,
	}
}

// Bind sets the local user id needed to normalize private messages.
func (d *Dispatcher) Bind(userID string) {
	d.mu.Lock()
	d.userID = userID
	d.mu.Unlock()
}

// SetReconnectHook registers the resubscription path invoked on
// EventReconnect.
func (d *Dispatcher) SetReconnectHook(fn func()) {
	d.mu.Lock()
	d.reconnect = fn
	d.mu.Unlock()
}

// BindTransport subscribes the dispatcher to every event the push
// channel can deliver.
func (d *Dispatcher) BindTransport(t transport.Transport) {
	t.On(transport.EventNewMessage, d.onChannelMessage)
	t.On(transport.EventNewPrivateMessage, d.onPrivateMessage)
	t.On(transport.EventNewPrivateNotification, d.onPrivateNotification)
	t.On(transport.EventMessageDeleted, d.onMessageDeleted)
	t.On(transport.EventReactionAdded, d.onReactionAdded)
}

// Dispatch routes one normalized event. The switch is exhaustive over
// EventKind.
func (d *Dispatcher) Dispatch(evt InboundEvent) {
	d.metrics.EventsDispatched.WithLabelValues(evt.Kind.String()).Inc()

	switch evt.Kind {
	case EventChannelMessage, EventPrivateMessage, EventPrivateNotification:
		d.notifier.HandleMessage(evt)
	case EventMessageDeleted:
		d.conversations.RemoveEverywhere(evt.DeletedID)
	case EventReactionAdded:
		d.conversations.UpdateEverywhere(evt.Message)
	case EventDisconnect:
		// Lifecycle events never produce notifications.
	case EventReconnect:
		d.mu.Lock()
		fn := d.reconnect
		d.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
}

func (d *Dispatcher) onChannelMessage(data json.RawMessage) {
	var m api.Message
	if err := json.Unmarshal(data, &m); err != nil {
		d.log.Warn().Err(err).Msg("bad newMessage payload")
		return
	}
	d.Dispatch(FromChannelMessage(m))
}

func (d *Dispatcher) onPrivateMessage(data json.RawMessage) {
	var m api.Message
	if err := json.Unmarshal(data, &m); err != nil {
		d.log.Warn().Err(err).Msg("bad newPrivateMessage payload")
		return
	}
	d.mu.Lock()
	userID := d.userID
	d.mu.Unlock()
	d.Dispatch(FromPrivateMessage(m, userID))
}

func (d *Dispatcher) onPrivateNotification(data json.RawMessage) {
	var n api.PrivateNotification
	if err := json.Unmarshal(data, &n); err != nil {
		d.log.Warn().Err(err).Msg("bad newPrivateNotification payload")
		return
	}
	d.Dispatch(FromPrivateNotification(n))
}

func (d *Dispatcher) onMessageDeleted(data json.RawMessage) {
	var del api.Deletion
	if err := json.Unmarshal(data, &del); err != nil {
		d.log.Warn().Err(err).Msg("bad messageDeleted payload")
		return
	}
	d.Dispatch(InboundEvent{Kind: EventMessageDeleted, DeletedID: del.MessageID})
}

func (d *Dispatcher) onReactionAdded(data json.RawMessage) {
	var m api.Message
	if err := json.Unmarshal(data, &m); err != nil {
		d.log.Warn().Err(err).Msg("bad reactionAdded payload")
		return
	}
	d.mu.Lock()
	userID := d.userID
	d.mu.Unlock()
	d.Dispatch(InboundEvent{Kind: EventReactionAdded, Message: messageFromAPI(m, userID)})
}
