package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/teamchat-client/internal/metrics"
	"github.com/vovakirdan/teamchat-client/internal/store"
	"github.com/vovakirdan/teamchat-client/internal/utils"
)

// dupWindow is how long a sender+content pair suppresses a second
// surfacing. The lightweight private-notification shape and the full
// message event can both fire for the same logical message.
const dupWindow = 2 * time.Second

// ToastSink receives transient, fire-and-forget notification text.
type ToastSink interface {
	Notify(text string)
}

// ToastFunc adapts a function to ToastSink.
type ToastFunc func(text string)

func (f ToastFunc) Notify(text string) { f(text) }

// Item is one entry of the user-visible notification list.
type Item struct {
	ID        string
	Kind      RoomKind
	Text      string
	SourceID  string
	Sender    string
	Content   string
	CreatedAt time.Time
}

// Notifier decides, per inbound message event, whether to append it to
// the open conversation, raise a notification, or drop it. Notifications
// are kept newest first and cleared only by an explicit bulk action.
type Notifier struct {
	log           *zerolog.Logger
	toast         ToastSink
	journal       store.NotificationStore // nil disables persistence
	metrics       *metrics.Metrics
	tracker       *Tracker
	conversations *Conversations
	now           func() time.Time

	mu     sync.Mutex
	userID string
	items  []Item
	recent map[string]surfacing
}

// surfacing remembers one recently surfaced private message for the
// double-fire collapse.
type surfacing struct {
	at          time.Time
	lightweight bool
}

// NewNotifier wires the suppression engine. journal may be nil.
func NewNotifier(tracker *Tracker, conversations *Conversations, toast ToastSink, journal store.NotificationStore, m *metrics.Metrics, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		log:           logger,
		toast:         toast,
		journal:       journal,
		metrics:       m,
		tracker:       tracker,
		conversations: conversations,
		now:           time.Now,
		recent:        make(map[string]surfacing),
	}
}

// Bind sets the local user id used for self-origin suppression.
func (n *Notifier) Bind(userID string) {
	n.mu.Lock()
	n.userID = userID
	n.mu.Unlock()
}

// HandleMessage applies the suppression precedence to one normalized
// message event. Called on the transport delivery goroutine, so
// surfacing order follows transport order.
func (n *Notifier) HandleMessage(evt InboundEvent) {
	n.mu.Lock()
	localUser := n.userID
	n.mu.Unlock()

	msg := evt.Message

	// Rule 1: self-origin. The sender already holds the REST-confirmed
	// copy; the echo only participates in list dedup.
	if localUser != "" && msg.SenderID == localUser {
		n.appendIfActive(msg)
		n.metrics.NotificationsSuppressed.WithLabelValues("self").Inc()
		return
	}

	// Rule 2: active context. The user is already looking at it.
	if active, ok := n.tracker.Active(); ok && active == msg.Room {
		if msg.ID != "" {
			n.conversations.Open(active).Append(msg)
		}
		n.metrics.NotificationsSuppressed.WithLabelValues("active").Inc()
		n.log.Debug().Str("room", msg.Room.String()).Msg("message ignored, room is active")
		return
	}

	// The two private event shapes can fire for the same logical
	// message; collapse them within a short window. Channel events are
	// never windowed: distinct messages always surface.
	now := n.now()
	if evt.Kind == EventPrivateMessage || evt.Kind == EventPrivateNotification {
		if n.duplicateSurfacing(msg, now) {
			n.metrics.NotificationsSuppressed.WithLabelValues("duplicate").Inc()
			return
		}
	}

	item := Item{
		ID:        utils.NewID(),
		Kind:      msg.Room.Kind,
		Text:      notificationText(evt),
		SourceID:  msg.Room.ID,
		Sender:    senderHandle(msg),
		Content:   msg.Content,
		CreatedAt: now,
	}

	n.mu.Lock()
	n.items = append([]Item{item}, n.items...)
	n.mu.Unlock()

	n.toast.Notify(item.Text)
	n.metrics.NotificationsRaised.WithLabelValues(msg.Room.Kind.String()).Inc()

	if n.journal != nil {
		rec := store.Notification{
			ID:        item.ID,
			Kind:      journalKind(msg.Room.Kind),
			Text:      item.Text,
			SourceID:  item.SourceID,
			Sender:    item.Sender,
			Content:   item.Content,
			CreatedAt: item.CreatedAt,
		}
		if err := n.journal.Save(context.Background(), rec); err != nil {
			n.log.Warn().Err(err).Msg("failed to journal notification")
		}
	}
}

// Items returns the notification list, newest first.
func (n *Notifier) Items() []Item {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Item, len(n.items))
	copy(out, n.items)
	return out
}

// Clear empties the list and the journal. This is the UI's explicit
// bulk clearing action.
func (n *Notifier) Clear(ctx context.Context) error {
	n.mu.Lock()
	n.items = nil
	n.mu.Unlock()

	if n.journal != nil {
		return n.journal.Clear(ctx)
	}
	return nil
}

// Reset drops list state on logout without touching the journal.
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.userID = ""
	n.items = nil
	n.recent = make(map[string]surfacing)
}

// duplicateSurfacing collapses the server's private double-fire: one
// logical message arrives as both a full record and the lightweight
// id-less shape, in either order. Only the id-less shape is ambiguous;
// two full records with distinct ids always surface, even when their
// content matches.
func (n *Notifier) duplicateSurfacing(msg Message, now time.Time) bool {
	key := msg.Room.String() + "|" + msg.SenderID + "|" + msg.Content

	n.mu.Lock()
	defer n.mu.Unlock()
	for k, s := range n.recent {
		if now.Sub(s.at) >= dupWindow {
			delete(n.recent, k)
		}
	}

	prev, seen := n.recent[key]
	if msg.ID == "" {
		if seen {
			return true
		}
		n.recent[key] = surfacing{at: now, lightweight: true}
		return false
	}
	if seen && prev.lightweight {
		// The lightweight shape already surfaced this message; consume
		// the entry so the next full record stands on its own.
		delete(n.recent, key)
		return true
	}
	n.recent[key] = surfacing{at: now}
	return false
}

func (n *Notifier) appendIfActive(msg Message) {
	if msg.ID == "" {
		return
	}
	if active, ok := n.tracker.Active(); ok && active == msg.Room {
		n.conversations.Open(active).Append(msg)
	}
}

func notificationText(evt InboundEvent) string {
	if evt.Message.Room.Kind == RoomChannel {
		name := evt.ChannelName
		if name == "" {
			name = "a channel"
		}
		return "New message in " + name
	}
	sender := evt.Message.SenderName
	if sender == "" {
		sender = "User"
	}
	return "New message from " + sender
}

// senderHandle records the account handle on the item, the way the
// API keys senders. Display text keeps using the label.
func senderHandle(m Message) string {
	if m.SenderUsername != "" {
		return m.SenderUsername
	}
	return m.SenderName
}

func journalKind(k RoomKind) store.NotificationKind {
	if k == RoomPrivate {
		return store.NotificationPrivate
	}
	return store.NotificationChannel
}
