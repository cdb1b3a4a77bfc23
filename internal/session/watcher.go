package session

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Watcher observes session changes and forces a logout when the token
// expires before the user logs out on their own. An already-expired or
// undecodable token triggers the logout immediately.
type Watcher struct {
	clock clock.Clock
	sink  LogoutSink
	log   *zerolog.Logger

	mu    sync.Mutex
	timer *clock.Timer
}

// NewWatcher constructs a watcher using the given clock. Pass
// clock.New() outside of tests.
func NewWatcher(c clock.Clock, sink LogoutSink, logger *zerolog.Logger) *Watcher {
	return &Watcher{clock: c, sink: sink, log: logger}
}

// Watch subscribes to the provider and arms the expiry timer for the
// current session, if any.
func (w *Watcher) Watch(p Provider) {
	p.OnChange(w.sessionChanged)
	w.sessionChanged(p.Current())
}

// Stop disarms any pending expiry timer.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopTimerLocked()
}

func (w *Watcher) sessionChanged(s *Session) {
	w.mu.Lock()
	w.stopTimerLocked()
	w.mu.Unlock()

	if s == nil {
		return
	}

	if s.Token == "" || s.ExpiresAt.IsZero() {
		// The backend always stamps exp; a token without one is broken.
		w.log.Warn().Str("user_id", s.UserID).Msg("session token has no decodable expiry")
		w.sink.ForceLogout("invalid session token")
		return
	}

	now := w.clock.Now()
	if s.Expired(now) {
		w.log.Info().Str("user_id", s.UserID).Time("expired_at", s.ExpiresAt).Msg("session token already expired")
		w.sink.ForceLogout("session expired")
		return
	}

	d := s.ExpiresAt.Sub(now)
	w.mu.Lock()
	w.timer = w.clock.AfterFunc(d, func() {
		w.log.Info().Str("user_id", s.UserID).Msg("session token reached expiry")
		w.sink.ForceLogout("session expired")
	})
	w.mu.Unlock()

	w.log.Debug().Str("user_id", s.UserID).Dur("expires_in", d).Msg("armed session expiry timer")
}

func (w *Watcher) stopTimerLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
