package transport

import "encoding/json"

// Event names spoken on the push channel. The server routes on these.
const (
	EventJoin                   = "join"
	EventJoinChannel            = "joinChannel"
	EventLeaveChannel           = "leaveChannel"
	EventJoinPrivateChat        = "joinPrivateChat"
	EventLeavePrivateChat       = "leavePrivateChat"
	EventNewMessage             = "newMessage"
	EventNewPrivateMessage      = "newPrivateMessage"
	EventNewPrivateNotification = "newPrivateNotification"
	EventMessageDeleted         = "messageDeleted"
	EventReactionAdded          = "reactionAdded"
)

// Envelope frames every message on the socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPrivateChatData is the payload for joinPrivateChat / leavePrivateChat.
type JoinPrivateChatData struct {
	UserID   string `json:"userId"`
	TargetID string `json:"targetId"`
}
