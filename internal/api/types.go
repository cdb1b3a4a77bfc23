package api

import (
	"encoding/json"
	"time"
)

// UserRef is a user reference as the API serializes it: either a full
// object or a bare id string, depending on whether the server populated
// the relation.
type UserRef struct {
	ID       string
	Username string
	Name     string
}

func (u *UserRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &u.ID)
	}
	var full struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	if err := json.Unmarshal(b, &full); err != nil {
		return err
	}
	u.ID = full.ID
	u.Username = full.Username
	u.Name = full.Name
	return nil
}

func (u UserRef) MarshalJSON() ([]byte, error) {
	if u.Username == "" && u.Name == "" {
		return json.Marshal(u.ID)
	}
	return json.Marshal(struct {
		ID       string `json:"_id"`
		Username string `json:"username,omitempty"`
		Name     string `json:"name,omitempty"`
	}{u.ID, u.Username, u.Name})
}

// Label picks the best display name available.
func (u UserRef) Label() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// ChannelRef is a channel reference, populated or bare id.
type ChannelRef struct {
	ID   string
	Name string
}

func (c *ChannelRef) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &c.ID)
	}
	var full struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &full); err != nil {
		return err
	}
	c.ID = full.ID
	c.Name = full.Name
	return nil
}

func (c ChannelRef) MarshalJSON() ([]byte, error) {
	if c.Name == "" {
		return json.Marshal(c.ID)
	}
	return json.Marshal(struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	}{c.ID, c.Name})
}

// Message is the canonical message record as returned by the REST API
// and carried on newMessage / newPrivateMessage events.
type Message struct {
	ID        string      `json:"_id"`
	Sender    UserRef     `json:"sender"`
	Channel   *ChannelRef `json:"channel,omitempty"`
	Receiver  *UserRef    `json:"receiver,omitempty"`
	Type      string      `json:"type"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// PrivateNotification is the lightweight shape of a private message,
// sent when the recipient has no chat room open with the sender.
type PrivateNotification struct {
	From    UserRef `json:"from"`
	Content string  `json:"content"`
}

// Deletion announces a removed message.
type Deletion struct {
	MessageID string `json:"messageId"`
}

// Channel is a channel record with its membership list. Members may be
// expanded user objects or bare id strings.
type Channel struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Members     []UserRef `json:"members,omitempty"`
}

// HasMember reports whether userID appears in the membership list.
func (c Channel) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// Presign is the upload handshake response: POST the file to URL with
// Fields, then reference it via PublicURL.
type Presign struct {
	URL       string            `json:"url"`
	Fields    map[string]string `json:"fields"`
	PublicURL string            `json:"publicUrl"`
}
