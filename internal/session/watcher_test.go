package session

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/teamchat-client/internal/log"
)

type countingSink struct {
	mu      sync.Mutex
	reasons []string
}

func (c *countingSink) ForceLogout(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

func (c *countingSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reasons)
}

func newWatcherFixture() (*Watcher, *Holder, *countingSink, *clock.Mock) {
	mock := clock.NewMock()
	sink := &countingSink{}
	w := NewWatcher(mock, sink, log.Nop())
	h := NewHolder()
	w.Watch(h)
	return w, h, sink, mock
}

func liveSession(mock *clock.Mock, ttl time.Duration) *Session {
	return &Session{
		UserID:    "u1",
		Token:     "tok",
		ExpiresAt: mock.Now().Add(ttl),
	}
}

func TestWatcherFiresAtExpiry(t *testing.T) {
	_, h, sink, mock := newWatcherFixture()
	h.Set(liveSession(mock, time.Hour))

	mock.Add(59 * time.Minute)
	if got := sink.count(); got != 0 {
		t.Fatalf("logout fired %d times before expiry", got)
	}

	mock.Add(2 * time.Minute)
	if got := sink.count(); got != 1 {
		t.Fatalf("logout fired %d times, want 1", got)
	}

	// The timer never rearms for the same session.
	mock.Add(24 * time.Hour)
	if got := sink.count(); got != 1 {
		t.Fatalf("logout fired %d times after long idle, want 1", got)
	}
}

func TestWatcherExpiredSessionLogsOutImmediately(t *testing.T) {
	_, h, sink, mock := newWatcherFixture()
	mock.Add(time.Hour)
	h.Set(&Session{UserID: "u1", Token: "tok", ExpiresAt: mock.Now().Add(-time.Minute)})

	if got := sink.count(); got != 1 {
		t.Fatalf("logout fired %d times, want immediate single logout", got)
	}
}

func TestWatcherUndecodableExpiryLogsOut(t *testing.T) {
	_, h, sink, _ := newWatcherFixture()
	h.Set(&Session{UserID: "u1", Token: "opaque-not-a-jwt"})

	if got := sink.count(); got != 1 {
		t.Fatalf("logout fired %d times, want 1", got)
	}
	if sink.reasons[0] != "invalid session token" {
		t.Fatalf("reason = %q", sink.reasons[0])
	}
}

func TestWatcherRearmsOnTokenRefresh(t *testing.T) {
	_, h, sink, mock := newWatcherFixture()
	h.Set(liveSession(mock, time.Hour))

	// Refresh before the first expiry pushes the deadline out.
	mock.Add(30 * time.Minute)
	h.Set(liveSession(mock, 3*time.Hour))

	mock.Add(2 * time.Hour)
	if got := sink.count(); got != 0 {
		t.Fatalf("logout fired %d times before refreshed expiry", got)
	}

	mock.Add(time.Hour + time.Minute)
	if got := sink.count(); got != 1 {
		t.Fatalf("logout fired %d times, want 1", got)
	}
}

func TestWatcherLogoutDisarmsTimer(t *testing.T) {
	_, h, sink, mock := newWatcherFixture()
	h.Set(liveSession(mock, time.Hour))
	h.Clear()

	mock.Add(2 * time.Hour)
	if got := sink.count(); got != 0 {
		t.Fatalf("logout fired %d times after explicit logout", got)
	}
}

func TestWatcherStop(t *testing.T) {
	w, h, sink, mock := newWatcherFixture()
	h.Set(liveSession(mock, time.Hour))
	w.Stop()

	mock.Add(2 * time.Hour)
	if got := sink.count(); got != 0 {
		t.Fatalf("logout fired %d times after Stop", got)
	}
}
