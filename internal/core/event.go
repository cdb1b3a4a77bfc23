package core

import (
	"github.com/vovakirdan/teamchat-client/internal/api"
)

// EventKind closes the set of inbound realtime events. New kinds are a
// compile-time-visible addition here plus a case in Dispatcher.Dispatch.
type EventKind int

const (
	// EventChannelMessage is a full message in a channel room.
	EventChannelMessage EventKind = iota
	// EventPrivateMessage is a full message in a private room.
	EventPrivateMessage
	// EventPrivateNotification is the lightweight private-message
	// shape: sender and content only, no id or room context.
	EventPrivateNotification
	// EventMessageDeleted announces a message removal.
	EventMessageDeleted
	// EventReactionAdded carries an updated message record.
	EventReactionAdded
	// EventDisconnect marks a transport drop.
	EventDisconnect
	// EventReconnect marks a reestablished transport connection.
	EventReconnect
)

func (k EventKind) String() string {
	switch k {
	case EventChannelMessage:
		return "channel_message"
	case EventPrivateMessage:
		return "private_message"
	case EventPrivateNotification:
		return "private_notification"
	case EventMessageDeleted:
		return "message_deleted"
	case EventReactionAdded:
		return "reaction_added"
	case EventDisconnect:
		return "disconnect"
	case EventReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

// InboundEvent is the normalized form of everything the transport
// delivers. Consumed once by the Dispatcher, never retained.
type InboundEvent struct {
	Kind EventKind
	// Message carries the payload for the message-bearing kinds. The
	// lightweight private-notification shape has no ID; such events
	// never reach a conversation list.
	Message Message
	// ChannelName is the display name for notification templates, when
	// the event carried one.
	ChannelName string
	// DeletedID is set for EventMessageDeleted.
	DeletedID string
}

// FromChannelMessage normalizes a newMessage payload.
func FromChannelMessage(m api.Message) InboundEvent {
	evt := InboundEvent{
		Kind:    EventChannelMessage,
		Message: messageFromAPI(m, ""),
	}
	if m.Channel != nil {
		evt.ChannelName = m.Channel.Name
	}
	return evt
}

// FromPrivateMessage normalizes a newPrivateMessage payload.
func FromPrivateMessage(m api.Message, localUserID string) InboundEvent {
	return InboundEvent{
		Kind:    EventPrivateMessage,
		Message: messageFromAPI(m, localUserID),
	}
}

// FromPrivateNotification normalizes the lightweight shape into the
// same form as a full private message so the suppression rules apply
// identically.
func FromPrivateNotification(n api.PrivateNotification) InboundEvent {
	return InboundEvent{
		Kind: EventPrivateNotification,
		Message: Message{
			SenderID:       n.From.ID,
			SenderName:     n.From.Label(),
			SenderUsername: n.From.Username,
			Type:           TypeText,
			Content:        n.Content,
			Room:           RoomRef{Kind: RoomPrivate, ID: n.From.ID},
		},
	}
}
