package core

import (
	"testing"

	"github.com/vovakirdan/teamchat-client/internal/log"
	"github.com/vovakirdan/teamchat-client/internal/transport"
)

func newTestTracker(t *testing.T) (*Tracker, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	tr := NewTracker(ft, log.Nop())
	tr.Bind("u1")
	return tr, ft
}

func TestTrackerActiveContextIsExclusive(t *testing.T) {
	tr, _ := newTestTracker(t)

	tr.JoinChannel("general")
	if active, ok := tr.Active(); !ok || active != (RoomRef{Kind: RoomChannel, ID: "general"}) {
		t.Fatalf("active = %v, %v; want channel:general", active, ok)
	}

	tr.JoinPrivate("u2")
	if active, _ := tr.Active(); active != (RoomRef{Kind: RoomPrivate, ID: "u2"}) {
		t.Fatalf("active = %v after JoinPrivate, want private:u2", active)
	}

	// The channel subscription survives the focus change.
	subs := tr.Subscribed()
	if len(subs) != 2 {
		t.Fatalf("got %d subscriptions, want 2", len(subs))
	}
}

func TestTrackerRejoinSkipsEmitButMovesFocus(t *testing.T) {
	tr, ft := newTestTracker(t)
	tr.SetConnected(true)

	tr.JoinChannel("general")
	tr.JoinPrivate("u2")
	tr.JoinChannel("general")

	if got := len(ft.emitted(transport.EventJoinChannel)); got != 1 {
		t.Fatalf("joinChannel emitted %d times, want 1", got)
	}
	if active, _ := tr.Active(); active != (RoomRef{Kind: RoomChannel, ID: "general"}) {
		t.Fatalf("active = %v after rejoin, want channel:general", active)
	}
}

func TestTrackerLeaveNonActiveKeepsFocus(t *testing.T) {
	tr, ft := newTestTracker(t)
	tr.SetConnected(true)

	tr.JoinChannel("random")
	tr.JoinChannel("general")
	tr.LeaveChannel("random")

	if active, ok := tr.Active(); !ok || active.ID != "general" {
		t.Fatalf("active = %v, %v after leaving non-active room", active, ok)
	}
	if got := len(ft.emitted(transport.EventLeaveChannel)); got != 1 {
		t.Fatalf("leaveChannel emitted %d times, want 1", got)
	}

	tr.LeaveChannel("general")
	if _, ok := tr.Active(); ok {
		t.Fatalf("active focus survived leaving the active room")
	}
}

func TestTrackerLeaveUnsubscribedIsSilent(t *testing.T) {
	tr, ft := newTestTracker(t)
	tr.SetConnected(true)

	tr.LeaveChannel("ghost")
	tr.LeavePrivate("u9")

	if len(ft.emits) != 0 {
		t.Fatalf("got %d emits for no-op leaves, want 0", len(ft.emits))
	}
}

func TestTrackerDefersJoinsUntilConnected(t *testing.T) {
	tr, ft := newTestTracker(t)

	tr.JoinChannel("general")
	tr.JoinPrivate("u2")
	if len(ft.emits) != 0 {
		t.Fatalf("got %d emits while disconnected, want 0", len(ft.emits))
	}
	if active, _ := tr.Active(); active != (RoomRef{Kind: RoomPrivate, ID: "u2"}) {
		t.Fatalf("active = %v while disconnected, want private:u2", active)
	}

	if err := tr.Resubscribe(nil); err != nil {
		t.Fatalf("Resubscribe: %v", err)
	}

	if got := ft.emitted(transport.EventJoin); len(got) != 1 || got[0] != "u1" {
		t.Fatalf("self join emits = %v, want [u1]", got)
	}
	if got := ft.emitted(transport.EventJoinChannel); len(got) != 1 || got[0] != "general" {
		t.Fatalf("joinChannel emits = %v, want [general]", got)
	}
	pm := ft.emitted(transport.EventJoinPrivateChat)
	if len(pm) != 1 {
		t.Fatalf("joinPrivateChat emitted %d times, want 1", len(pm))
	}
	if data := pm[0].(transport.JoinPrivateChatData); data.UserID != "u1" || data.TargetID != "u2" {
		t.Fatalf("joinPrivateChat payload = %+v", data)
	}
}

func TestTrackerResubscribeMergesMembership(t *testing.T) {
	tr, ft := newTestTracker(t)
	tr.SetConnected(true)
	tr.JoinChannel("general")
	ft.resetEmits()

	if err := tr.Resubscribe([]string{"general", "announcements"}); err != nil {
		t.Fatalf("Resubscribe: %v", err)
	}

	joined := ft.emitted(transport.EventJoinChannel)
	if len(joined) != 2 {
		t.Fatalf("joinChannel emitted %d times, want 2", len(joined))
	}
	seen := map[string]bool{}
	for _, p := range joined {
		seen[p.(string)] = true
	}
	if !seen["general"] || !seen["announcements"] {
		t.Fatalf("joined set = %v", seen)
	}

	if got := len(tr.Subscribed()); got != 2 {
		t.Fatalf("got %d subscriptions after merge, want 2", got)
	}
}

func TestTrackerReset(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.SetConnected(true)
	tr.JoinChannel("general")
	tr.JoinPrivate("u2")

	tr.Reset()

	if got := len(tr.Subscribed()); got != 0 {
		t.Fatalf("got %d subscriptions after Reset, want 0", got)
	}
	if _, ok := tr.Active(); ok {
		t.Fatalf("active focus survived Reset")
	}
}
