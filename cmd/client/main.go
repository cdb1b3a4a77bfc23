package main

import (
	"bufio"
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/teamchat-client/internal/app"
	"github.com/vovakirdan/teamchat-client/internal/config"
	"github.com/vovakirdan/teamchat-client/internal/core"
	"github.com/vovakirdan/teamchat-client/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath   string
		overrides config.Config
		username  string
		email     string
		password  string
	)

	cmd := &cobra.Command{
		Use:          "teamchat",
		Short:        "Terminal team-chat client",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootLog := log.New("info")
			cfg, _, err := config.Load(bootLog, cfgPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)
			logger := log.New(cfg.LogLevel)

			return run(cmd.Context(), cfg, logger, username, email, password)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&overrides.APIBaseURL, "api-url", "", "REST API base URL")
	cmd.Flags().StringVar(&overrides.SocketURL, "socket-url", "", "push transport URL")
	cmd.Flags().StringVar(&overrides.DebugAddr, "debug-addr", "", "debug server address (/healthz, /metrics)")
	cmd.Flags().StringVar(&overrides.NotificationsDB, "notifications-db", "", "sqlite path for the notification journal")
	cmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&username, "username", "", "login username")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&password, "password", "", "login password")

	return cmd
}

func run(baseCtx context.Context, cfg config.Config, logger *zerolog.Logger, username, email, password string) error {
	ctx, stop := signal.NotifyContext(baseCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	toast := core.ToastFunc(func(text string) {
		fmt.Printf("** %s\n", text)
	})

	a, err := app.New(cfg, toast, logger)
	if err != nil {
		return err
	}

	if username != "" || email != "" {
		if err := a.Login(ctx, username, email, password); err != nil {
			return err
		}
		fmt.Println("Logged in.")
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- a.Run(ctx)
	}()

	fmt.Println("Commands: /join <channel>, /leave <channel>, /dm <user>, /enddm <user>,")
	fmt.Println("          /history, /notifications, /clear, /file <path>, /quit")
	fmt.Println("Anything else is sent as a message to the active conversation.")

	interact(ctx, a)

	stop()
	return <-runErr
}

func interact(ctx context.Context, a *app.App) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return
		}
		handleLine(ctx, a, line)
	}
}

func handleLine(ctx context.Context, a *app.App, line string) {
	cmdArg := strings.SplitN(line, " ", 2)
	arg := ""
	if len(cmdArg) == 2 {
		arg = strings.TrimSpace(cmdArg[1])
	}

	switch cmdArg[0] {
	case "/join":
		a.Tracker.JoinChannel(arg)
		showHistory(ctx, a)
	case "/leave":
		a.Tracker.LeaveChannel(arg)
	case "/dm":
		a.Tracker.JoinPrivate(arg)
		showHistory(ctx, a)
	case "/enddm":
		a.Tracker.LeavePrivate(arg)
	case "/history":
		showHistory(ctx, a)
	case "/notifications":
		for _, item := range a.Notifier.Items() {
			fmt.Printf("[%s] %s: %s\n", item.CreatedAt.Format("15:04"), item.Text, item.Content)
		}
	case "/clear":
		if err := a.Notifier.Clear(ctx); err != nil {
			fmt.Printf("clear failed: %v\n", err)
		}
	case "/file":
		sendFile(ctx, a, arg)
	default:
		active, ok := a.Tracker.Active()
		if !ok {
			fmt.Println("No active conversation. /join a channel or /dm a user first.")
			return
		}
		if _, err := a.Sender.Send(ctx, active, line); err != nil {
			fmt.Printf("send failed: %v\n", err)
		}
	}
}

func showHistory(ctx context.Context, a *app.App) {
	active, ok := a.Tracker.Active()
	if !ok {
		fmt.Println("No active conversation.")
		return
	}
	msgs, err := a.Sender.History(ctx, active)
	if err != nil {
		fmt.Printf("history failed: %v\n", err)
		return
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.SenderName, m.Content)
	}
}

func sendFile(ctx context.Context, a *app.App, path string) {
	active, ok := a.Tracker.Active()
	if !ok {
		fmt.Println("No active conversation.")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("open failed: %v\n", err)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := a.Sender.SendFile(ctx, active, filepath.Base(path), contentType, f); err != nil {
		fmt.Printf("file send failed: %v\n", err)
	}
}
