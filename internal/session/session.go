package session

import (
	"sync"
	"time"
)

// Role distinguishes the two account kinds the backend issues tokens for.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Session is the identity supplied by the auth collaborator.
// At most one session is live per client process.
type Session struct {
	UserID    string
	Name      string
	Token     string
	Role      Role
	ExpiresAt time.Time
}

// Expired reports whether the session token has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider supplies the current session and change notifications.
type Provider interface {
	Current() *Session
	OnChange(fn func(*Session))
}

// LogoutSink is invoked when the session must be force-terminated,
// e.g. on token expiry or a 401 from the REST API.
type LogoutSink interface {
	ForceLogout(reason string)
}

// LogoutFunc adapts a function to LogoutSink.
type LogoutFunc func(reason string)

func (f LogoutFunc) ForceLogout(reason string) { f(reason) }

// Holder is an in-process Provider. The auth collaborator sets the
// session on login/refresh and clears it on logout.
type Holder struct {
	mu        sync.Mutex
	current   *Session
	listeners []func(*Session)
}

// NewHolder constructs an empty holder.
func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the live session, or nil when logged out.
func (h *Holder) Current() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// OnChange registers a callback fired on every Set, including Set(nil).
func (h *Holder) OnChange(fn func(*Session)) {
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// Set replaces the current session and notifies listeners.
// Missing ExpiresAt is filled in from the token when possible.
func (h *Holder) Set(s *Session) {
	if s != nil && s.ExpiresAt.IsZero() && s.Token != "" {
		if exp, err := TokenExpiry(s.Token); err == nil {
			s.ExpiresAt = exp
		}
	}

	h.mu.Lock()
	h.current = s
	listeners := make([]func(*Session), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// Clear drops the session, notifying listeners. Equivalent to Set(nil).
func (h *Holder) Clear() {
	h.Set(nil)
}
