package core

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/teamchat-client/internal/transport"
)

// emitter is the slice of the transport the tracker needs.
type emitter interface {
	Emit(event string, payload any) error
}

// Tracker owns the room subscription set and the single ActiveContext:
// the one conversation currently displayed. Join/leave calls are the
// only writers of the active focus.
type Tracker struct {
	log  *zerolog.Logger
	emit emitter

	mu        sync.Mutex
	userID    string
	connected bool
	channels  map[string]struct{}
	privates  map[string]struct{}
	active    *RoomRef
}

// NewTracker builds an empty tracker bound to the transport façade.
func NewTracker(e emitter, logger *zerolog.Logger) *Tracker {
	return &Tracker{
		log:      logger,
		emit:     e,
		channels: make(map[string]struct{}),
		privates: make(map[string]struct{}),
	}
}

// Bind sets the local user id for self-room and private-chat payloads.
func (t *Tracker) Bind(userID string) {
	t.mu.Lock()
	t.userID = userID
	t.mu.Unlock()
}

// SetConnected gates transport emits. While disconnected, joins are
// recorded and deferred until Resubscribe.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.connected = connected
	t.mu.Unlock()
}

// JoinChannel subscribes a channel room and makes it the active focus,
// clearing any private focus. Re-joining an already-subscribed room
// skips the transport emit but still updates the focus.
func (t *Tracker) JoinChannel(id string) {
	t.mu.Lock()
	_, already := t.channels[id]
	t.channels[id] = struct{}{}
	t.active = &RoomRef{Kind: RoomChannel, ID: id}
	doEmit := t.connected && !already
	t.mu.Unlock()

	if doEmit {
		if err := t.emit.Emit(transport.EventJoinChannel, id); err != nil {
			t.log.Warn().Err(err).Str("channel", id).Msg("join channel emit failed")
		}
	}
	t.log.Debug().Str("channel", id).Bool("deferred", !doEmit && !already).Msg("joined channel")
}

// LeaveChannel unsubscribes a channel room. The active focus is only
// cleared when the room being left is the active one; leaving a
// non-active room is a pure subscription removal.
func (t *Tracker) LeaveChannel(id string) {
	t.mu.Lock()
	_, subscribed := t.channels[id]
	delete(t.channels, id)
	if t.active != nil && t.active.Kind == RoomChannel && t.active.ID == id {
		t.active = nil
	}
	doEmit := t.connected && subscribed
	t.mu.Unlock()

	if doEmit {
		if err := t.emit.Emit(transport.EventLeaveChannel, id); err != nil {
			t.log.Warn().Err(err).Str("channel", id).Msg("leave channel emit failed")
		}
	}
}

// JoinPrivate subscribes the two-party room with the counterpart and
// makes it the active focus, clearing any channel focus.
func (t *Tracker) JoinPrivate(counterpartID string) {
	t.mu.Lock()
	_, already := t.privates[counterpartID]
	t.privates[counterpartID] = struct{}{}
	t.active = &RoomRef{Kind: RoomPrivate, ID: counterpartID}
	doEmit := t.connected && !already
	userID := t.userID
	t.mu.Unlock()

	if doEmit {
		payload := transport.JoinPrivateChatData{UserID: userID, TargetID: counterpartID}
		if err := t.emit.Emit(transport.EventJoinPrivateChat, payload); err != nil {
			t.log.Warn().Err(err).Str("target", counterpartID).Msg("join private chat emit failed")
		}
	}
}

// LeavePrivate unsubscribes the private room with the counterpart.
func (t *Tracker) LeavePrivate(counterpartID string) {
	t.mu.Lock()
	_, subscribed := t.privates[counterpartID]
	delete(t.privates, counterpartID)
	if t.active != nil && t.active.Kind == RoomPrivate && t.active.ID == counterpartID {
		t.active = nil
	}
	doEmit := t.connected && subscribed
	userID := t.userID
	t.mu.Unlock()

	if doEmit {
		payload := transport.JoinPrivateChatData{UserID: userID, TargetID: counterpartID}
		if err := t.emit.Emit(transport.EventLeavePrivateChat, payload); err != nil {
			t.log.Warn().Err(err).Str("target", counterpartID).Msg("leave private chat emit failed")
		}
	}
}

// Active returns the current focus, if any.
func (t *Tracker) Active() (RoomRef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return RoomRef{}, false
	}
	return *t.active, true
}

// Subscribed returns the full subscription set in no particular order.
func (t *Tracker) Subscribed() []RoomRef {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RoomRef, 0, len(t.channels)+len(t.privates))
	for id := range t.channels {
		out = append(out, RoomRef{Kind: RoomChannel, ID: id})
	}
	for id := range t.privates {
		out = append(out, RoomRef{Kind: RoomPrivate, ID: id})
	}
	return out
}

// Resubscribe re-issues the self-room join and every tracked room
// subscription. memberChannelIDs comes from the remote membership list
// and is merged into the tracked set; subscriptions are not assumed to
// survive a reconnect.
func (t *Tracker) Resubscribe(memberChannelIDs []string) error {
	t.mu.Lock()
	t.connected = true
	for _, id := range memberChannelIDs {
		t.channels[id] = struct{}{}
	}
	userID := t.userID
	channels := make([]string, 0, len(t.channels))
	for id := range t.channels {
		channels = append(channels, id)
	}
	privates := make([]string, 0, len(t.privates))
	for id := range t.privates {
		privates = append(privates, id)
	}
	t.mu.Unlock()

	var errs []error
	if userID != "" {
		if err := t.emit.Emit(transport.EventJoin, userID); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range channels {
		if err := t.emit.Emit(transport.EventJoinChannel, id); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range privates {
		payload := transport.JoinPrivateChatData{UserID: userID, TargetID: id}
		if err := t.emit.Emit(transport.EventJoinPrivateChat, payload); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	t.log.Debug().Int("channels", len(channels)).Int("privates", len(privates)).Msg("resubscribed rooms")
	return nil
}

// Reset discards all membership state, e.g. when the session ends.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.userID = ""
	t.connected = false
	t.channels = make(map[string]struct{})
	t.privates = make(map[string]struct{})
	t.active = nil
}
