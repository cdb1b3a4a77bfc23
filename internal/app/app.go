package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/teamchat-client/internal/api"
	"github.com/vovakirdan/teamchat-client/internal/config"
	"github.com/vovakirdan/teamchat-client/internal/core"
	"github.com/vovakirdan/teamchat-client/internal/debug"
	"github.com/vovakirdan/teamchat-client/internal/metrics"
	"github.com/vovakirdan/teamchat-client/internal/session"
	"github.com/vovakirdan/teamchat-client/internal/store"
	"github.com/vovakirdan/teamchat-client/internal/store/sqlite"
	"github.com/vovakirdan/teamchat-client/internal/transport"
)

// App wires the realtime coordinator together.
type App struct {
	Sessions      *session.Holder
	API           *api.Client
	Manager       *core.Manager
	Tracker       *core.Tracker
	Notifier      *core.Notifier
	Sender        *core.Sender
	Conversations *core.Conversations

	cfg      config.Config
	log      *zerolog.Logger
	watcher  *session.Watcher
	journal  store.NotificationStore
	debugSrv *stdhttp.Server
}

// New constructs the application with the provided configuration. The
// toast sink is the UI collaborator receiving transient notifications.
func New(cfg config.Config, toast core.ToastSink, logger *zerolog.Logger) (*App, error) {
	holder := session.NewHolder()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	apiClient := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, func() string {
		if s := holder.Current(); s != nil {
			return s.Token
		}
		return ""
	}, logger)

	var journal store.NotificationStore
	if cfg.NotificationsDB != "" {
		st, err := sqlite.New(cfg.NotificationsDB)
		if err != nil {
			return nil, fmt.Errorf("open notification journal: %w", err)
		}
		journal = st
		logger.Info().Str("path", cfg.NotificationsDB).Msg("notification journal opened")
	}

	sock := transport.NewSocket(cfg.PushURL(), cfg.HandshakeTimeout, logger)

	conversations := core.NewConversations()
	tracker := core.NewTracker(sock, logger)
	notifier := core.NewNotifier(tracker, conversations, toast, journal, m, logger)
	dispatcher := core.NewDispatcher(notifier, conversations, m, logger)
	sender := core.NewSender(apiClient, conversations, m, logger)

	manager := core.NewManager(core.ManagerDeps{
		Transport:        sock,
		Sessions:         holder,
		Tracker:          tracker,
		Dispatcher:       dispatcher,
		Notifier:         notifier,
		Sender:           sender,
		Channels:         apiClient,
		Logout:           session.LogoutFunc(func(string) { holder.Clear() }),
		Toast:            toast,
		Metrics:          m,
		Log:              logger,
		HandshakeTimeout: cfg.HandshakeTimeout,
	})

	// A 401 from any REST call means the token was invalidated
	// server-side; route it to the forced-logout path.
	apiClient.OnUnauthorized(func() {
		manager.ForceLogout("rest call unauthorized")
	})

	watcher := session.NewWatcher(clock.New(), session.LogoutFunc(manager.ForceLogout), logger)

	a := &App{
		Sessions:      holder,
		API:           apiClient,
		Manager:       manager,
		Tracker:       tracker,
		Notifier:      notifier,
		Sender:        sender,
		Conversations: conversations,
		cfg:           cfg,
		log:           logger,
		watcher:       watcher,
		journal:       journal,
	}

	if cfg.DebugAddr != "" {
		a.debugSrv = debug.NewServer(cfg.DebugAddr, manager.State, registry, logger)
	}

	return a, nil
}

// Login authenticates against the REST API and installs the session.
func (a *App) Login(ctx context.Context, username, email, password string) error {
	resp, err := a.API.Login(ctx, api.LoginRequest{Username: username, Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	a.Sessions.Set(&session.Session{
		UserID: resp.User.ID,
		Name:   resp.User.Name,
		Token:  resp.AccessToken,
		Role:   session.RoleUser,
	})
	return nil
}

// Logout clears the session, tearing the push connection down.
func (a *App) Logout() {
	a.Sessions.Clear()
}

// Run starts the coordinator and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.watcher.Watch(a.Sessions)
	a.Manager.Start()

	debugErr := make(chan error, 1)
	if a.debugSrv != nil {
		go func() {
			a.log.Info().Str("addr", a.debugSrv.Addr).Msg("debug server listening")
			if err := a.debugSrv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
				debugErr <- err
				return
			}
			debugErr <- nil
		}()
	}

	select {
	case err := <-debugErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		if a.debugSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.debugSrv.Shutdown(shutdownCtx); err != nil {
				a.log.Warn().Err(err).Msg("debug server shutdown failed")
			}
		}
		a.cleanup()
		return nil
	}
}

// cleanup releases the connection and other resources.
func (a *App) cleanup() {
	a.watcher.Stop()
	if err := a.Manager.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close manager")
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close notification journal")
		} else {
			a.log.Info().Msg("notification journal closed")
		}
	}
}
