package core

import "sync"

// Conversation is the ordered message list of one open room. No two
// entries ever share an id, regardless of whether the REST confirmation
// or the realtime echo lands first.
type Conversation struct {
	mu       sync.Mutex
	room     RoomRef
	messages []Message
	ids      map[string]struct{}
}

// NewConversation builds an empty list for the given room.
func NewConversation(room RoomRef) *Conversation {
	return &Conversation{
		room: room,
		ids:  make(map[string]struct{}),
	}
}

// Room returns the room this conversation belongs to.
func (c *Conversation) Room() RoomRef {
	return c.room
}

// Append adds a message unless its id is already present. Returns
// false for duplicates.
func (c *Conversation) Append(m Message) bool {
	if m.ID == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.ids[m.ID]; dup {
		return false
	}
	c.ids[m.ID] = struct{}{}
	c.messages = append(c.messages, m)
	return true
}

// Replace swaps the whole list, e.g. after a history fetch. Duplicate
// ids within the input collapse to the first occurrence.
func (c *Conversation) Replace(ms []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = c.messages[:0]
	c.ids = make(map[string]struct{}, len(ms))
	for _, m := range ms {
		if m.ID == "" {
			continue
		}
		if _, dup := c.ids[m.ID]; dup {
			continue
		}
		c.ids[m.ID] = struct{}{}
		c.messages = append(c.messages, m)
	}
}

// Remove deletes a message by id. Returns true if it was present.
func (c *Conversation) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[id]; !ok {
		return false
	}
	delete(c.ids, id)
	for i, m := range c.messages {
		if m.ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			break
		}
	}
	return true
}

// Update replaces the stored message with the same id in place, e.g.
// after a reaction. Returns false when the id is unknown.
func (c *Conversation) Update(m Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[m.ID]; !ok {
		return false
	}
	for i, old := range c.messages {
		if old.ID == m.ID {
			c.messages[i] = m
			return true
		}
	}
	return false
}

// Messages returns a copy of the list in display order.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// Conversations is the registry of open conversation lists, one per
// room the UI currently displays or has displayed.
type Conversations struct {
	mu   sync.Mutex
	open map[RoomRef]*Conversation
}

// NewConversations builds an empty registry.
func NewConversations() *Conversations {
	return &Conversations{open: make(map[RoomRef]*Conversation)}
}

// Open returns the conversation for a room, creating it if needed.
func (cs *Conversations) Open(room RoomRef) *Conversation {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.open[room]; ok {
		return c
	}
	c := NewConversation(room)
	cs.open[room] = c
	return c
}

// Get looks a conversation up without creating it.
func (cs *Conversations) Get(room RoomRef) (*Conversation, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.open[room]
	return c, ok
}

// Close drops a conversation list.
func (cs *Conversations) Close(room RoomRef) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	delete(cs.open, room)
}

// RemoveEverywhere deletes a message id from every open list. Deletion
// events carry no room context.
func (cs *Conversations) RemoveEverywhere(id string) {
	for _, c := range cs.snapshot() {
		c.Remove(id)
	}
}

// UpdateEverywhere replaces a message by id wherever it appears.
func (cs *Conversations) UpdateEverywhere(m Message) {
	for _, c := range cs.snapshot() {
		c.Update(m)
	}
}

// Reset drops all open conversations, e.g. on logout.
func (cs *Conversations) Reset() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.open = make(map[RoomRef]*Conversation)
}

func (cs *Conversations) snapshot() []*Conversation {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*Conversation, 0, len(cs.open))
	for _, c := range cs.open {
		out = append(out, c)
	}
	return out
}
