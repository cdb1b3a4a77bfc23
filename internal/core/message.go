package core

import (
	"time"

	"github.com/vovakirdan/teamchat-client/internal/api"
)

// RoomKind distinguishes channel rooms from two-party private rooms.
type RoomKind int

const (
	RoomChannel RoomKind = iota
	RoomPrivate
)

func (k RoomKind) String() string {
	switch k {
	case RoomChannel:
		return "channel"
	case RoomPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// RoomRef identifies a subscription unit on the push transport. For a
// channel room ID is the channel id; for a private room it is the
// counterpart's user id.
type RoomRef struct {
	Kind RoomKind
	ID   string
}

func (r RoomRef) String() string {
	return r.Kind.String() + ":" + r.ID
}

// Message content kinds.
const (
	TypeText = "text"
	TypeFile = "file"
)

// Message is the domain model for a chat message as displayed in a
// conversation list.
type Message struct {
	ID       string
	SenderID string
	// SenderName is the display label (name, falling back to username);
	// SenderUsername is the account handle as the API records it.
	SenderName     string
	SenderUsername string
	Type           string
	Content        string
	Room           RoomRef
	CreatedAt      time.Time
}

// messageFromAPI converts a canonical REST/realtime message record.
// For private messages the room is keyed on the counterpart, which is
// the sender unless the local user sent it.
func messageFromAPI(m api.Message, localUserID string) Message {
	msg := Message{
		ID:             m.ID,
		SenderID:       m.Sender.ID,
		SenderName:     m.Sender.Label(),
		SenderUsername: m.Sender.Username,
		Type:           m.Type,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.Channel != nil {
		msg.Room = RoomRef{Kind: RoomChannel, ID: m.Channel.ID}
		return msg
	}

	counterpart := m.Sender.ID
	if counterpart == localUserID && m.Receiver != nil {
		counterpart = m.Receiver.ID
	}
	msg.Room = RoomRef{Kind: RoomPrivate, ID: counterpart}
	return msg
}
