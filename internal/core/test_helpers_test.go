package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/teamchat-client/internal/api"
	"github.com/vovakirdan/teamchat-client/internal/log"
	"github.com/vovakirdan/teamchat-client/internal/metrics"
	"github.com/vovakirdan/teamchat-client/internal/store"
	"github.com/vovakirdan/teamchat-client/internal/transport"
)

func testLogger() *zerolog.Logger { return log.Nop() }

func testMetrics() *metrics.Metrics { return metrics.NewUnregistered() }

type emitRecord struct {
	event   string
	payload any
}

// fakeTransport implements transport.Transport for tests: emits are
// recorded, inbound events and connection changes are injected.
type fakeTransport struct {
	mu            sync.Mutex
	emits         []emitRecord
	handlers      map[string][]transport.Handler
	connectFns    []func(bool)
	disconnectFns []func(error)
	connectErr    error
	connected     bool
	closed        bool
	token         string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string][]transport.Handler)}
}

func (f *fakeTransport) Connect(_ context.Context, token string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	if f.connected {
		f.mu.Unlock()
		return errors.New("transport: already connected")
	}
	f.connected = true
	f.closed = false
	f.token = token
	fns := append([]func(bool){}, f.connectFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(false)
	}
	return nil
}

func (f *fakeTransport) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeTransport) currentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTransport) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emitRecord{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) On(event string, h transport.Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = append(f.handlers[event], h)
}

func (f *fakeTransport) OnConnect(fn func(bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectFns = append(f.connectFns, fn)
}

func (f *fakeTransport) OnDisconnect(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnectFns = append(f.disconnectFns, fn)
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.connected = false
	return nil
}

func (f *fakeTransport) deliver(event string, payload any) {
	raw, _ := json.Marshal(payload)
	f.mu.Lock()
	hs := append([]transport.Handler{}, f.handlers[event]...)
	f.mu.Unlock()
	for _, h := range hs {
		h(raw)
	}
}

func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	f.connected = false
	fns := append([]func(error){}, f.disconnectFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (f *fakeTransport) reconnect() {
	f.mu.Lock()
	f.connected = true
	fns := append([]func(bool){}, f.connectFns...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(true)
	}
}

func (f *fakeTransport) emitted(event string) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []any
	for _, e := range f.emits {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

func (f *fakeTransport) resetEmits() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = nil
}

// fakeToast records notification text in order.
type fakeToast struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeToast) Notify(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
}

func (f *fakeToast) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.texts...)
}

// fakeJournal records saved notifications.
type fakeJournal struct {
	mu      sync.Mutex
	saved   []store.Notification
	cleared bool
}

func (f *fakeJournal) Save(_ context.Context, n store.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, n)
	return nil
}

func (f *fakeJournal) Recent(_ context.Context, _ int) ([]store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Notification{}, f.saved...), nil
}

func (f *fakeJournal) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = nil
	f.cleared = true
	return nil
}

func (f *fakeJournal) Close() error { return nil }

// fakeLister returns a fixed channel membership list.
type fakeLister struct {
	channels []api.Channel
	err      error
}

func (f *fakeLister) MemberChannels(_ context.Context, _ string) ([]api.Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.channels, nil
}

type engine struct {
	transport     *fakeTransport
	toast         *fakeToast
	tracker       *Tracker
	conversations *Conversations
	notifier      *Notifier
	dispatcher    *Dispatcher
}

// newEngine wires a tracker, notifier, and dispatcher over fakes for
// the local user u1.
func newEngine() *engine {
	ft := newFakeTransport()
	toast := &fakeToast{}
	logger := log.Nop()
	m := metrics.NewUnregistered()

	conversations := NewConversations()
	tracker := NewTracker(ft, logger)
	tracker.Bind("u1")
	notifier := NewNotifier(tracker, conversations, toast, nil, m, logger)
	notifier.Bind("u1")
	dispatcher := NewDispatcher(notifier, conversations, m, logger)
	dispatcher.Bind("u1")

	return &engine{
		transport:     ft,
		toast:         toast,
		tracker:       tracker,
		conversations: conversations,
		notifier:      notifier,
		dispatcher:    dispatcher,
	}
}

func channelMessage(id, sender, senderName, channelID, channelName, content string) api.Message {
	return api.Message{
		ID:      id,
		Sender:  api.UserRef{ID: sender, Username: senderName},
		Channel: &api.ChannelRef{ID: channelID, Name: channelName},
		Type:    "text",
		Content: content,
	}
}

func privateMessage(id, sender, senderName, receiver, content string) api.Message {
	return api.Message{
		ID:       id,
		Sender:   api.UserRef{ID: sender, Username: senderName},
		Receiver: &api.UserRef{ID: receiver},
		Type:     "text",
		Content:  content,
	}
}

func privateNotification(senderID, senderName, content string) api.PrivateNotification {
	return api.PrivateNotification{
		From:    api.UserRef{ID: senderID, Username: senderName},
		Content: content,
	}
}
