package core

import (
	"testing"
)

func msg(id, content string, room RoomRef) Message {
	return Message{ID: id, SenderID: "u2", Type: TypeText, Content: content, Room: room}
}

func TestConversationAppendDeduplicates(t *testing.T) {
	room := RoomRef{Kind: RoomChannel, ID: "general"}
	c := NewConversation(room)

	if !c.Append(msg("m1", "hi", room)) {
		t.Fatalf("first append returned false")
	}
	if c.Append(msg("m1", "hi", room)) {
		t.Fatalf("duplicate append returned true")
	}
	if c.Append(Message{Content: "no id", Room: room}) {
		t.Fatalf("append without id returned true")
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestConversationReplaceCollapsesDuplicates(t *testing.T) {
	room := RoomRef{Kind: RoomPrivate, ID: "u2"}
	c := NewConversation(room)
	c.Append(msg("m0", "live", room))

	c.Replace([]Message{
		msg("m1", "a", room),
		msg("m2", "b", room),
		msg("m1", "a again", room),
	})

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages after Replace, want 2", len(msgs))
	}
	if msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("unexpected order: %q, %q", msgs[0].ID, msgs[1].ID)
	}

	// History replace must reset the dedup index too.
	if !c.Append(msg("m0", "live", room)) {
		t.Fatalf("append of pre-replace id rejected after Replace")
	}
}

func TestConversationRemoveAndUpdate(t *testing.T) {
	room := RoomRef{Kind: RoomChannel, ID: "general"}
	c := NewConversation(room)
	c.Append(msg("m1", "a", room))
	c.Append(msg("m2", "b", room))

	if !c.Remove("m1") {
		t.Fatalf("Remove(m1) = false")
	}
	if c.Remove("m1") {
		t.Fatalf("second Remove(m1) = true")
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len() = %d after remove, want 1", got)
	}

	updated := msg("m2", "b edited", room)
	if !c.Update(updated) {
		t.Fatalf("Update(m2) = false")
	}
	if c.Update(msg("m9", "ghost", room)) {
		t.Fatalf("Update of unknown id = true")
	}
	if got := c.Messages()[0].Content; got != "b edited" {
		t.Fatalf("content = %q, want %q", got, "b edited")
	}
}

func TestConversationsRemoveEverywhere(t *testing.T) {
	cs := NewConversations()
	chRoom := RoomRef{Kind: RoomChannel, ID: "general"}
	pmRoom := RoomRef{Kind: RoomPrivate, ID: "u2"}

	cs.Open(chRoom).Append(msg("m1", "a", chRoom))
	cs.Open(pmRoom).Append(msg("m1", "a", pmRoom))
	cs.Open(pmRoom).Append(msg("m2", "b", pmRoom))

	cs.RemoveEverywhere("m1")

	if got := cs.Open(chRoom).Len(); got != 0 {
		t.Fatalf("channel conversation has %d messages, want 0", got)
	}
	if got := cs.Open(pmRoom).Len(); got != 1 {
		t.Fatalf("private conversation has %d messages, want 1", got)
	}
}

func TestConversationsOpenReturnsSameList(t *testing.T) {
	cs := NewConversations()
	room := RoomRef{Kind: RoomChannel, ID: "general"}

	first := cs.Open(room)
	first.Append(msg("m1", "a", room))
	if got := cs.Open(room).Len(); got != 1 {
		t.Fatalf("second Open lost state: Len() = %d, want 1", got)
	}

	cs.Close(room)
	if got := cs.Open(room).Len(); got != 0 {
		t.Fatalf("Open after Close kept state: Len() = %d, want 0", got)
	}
}
