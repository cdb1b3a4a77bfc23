package store

import (
	"context"
	"time"
)

// NotificationKind mirrors the room kind the notification came from.
type NotificationKind string

const (
	NotificationChannel NotificationKind = "channel"
	NotificationPrivate NotificationKind = "private"
)

// Notification is one entry of the surfaced-notification journal.
// Messages themselves are never persisted locally; the journal holds
// only what was shown on the bell.
type Notification struct {
	ID        string
	Kind      NotificationKind
	Text      string
	SourceID  string // channel id or sender user id
	Sender    string // display label of the sender
	Content   string
	CreatedAt time.Time
}

// NotificationStore persists the journal across client restarts.
// Clearing is a bulk action driven by the UI, never automatic expiry.
type NotificationStore interface {
	Save(ctx context.Context, n Notification) error
	Recent(ctx context.Context, limit int) ([]Notification, error)
	Clear(ctx context.Context) error
	Close() error
}
