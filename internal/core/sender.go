package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/teamchat-client/internal/api"
	"github.com/vovakirdan/teamchat-client/internal/metrics"
)

// restAPI is the REST surface the send coordinator consumes.
type restAPI interface {
	SendChannelMessage(ctx context.Context, channelID, msgType, content string) (api.Message, error)
	SendPrivateMessage(ctx context.Context, receiverID, msgType, content string) (api.Message, error)
	ChannelMessages(ctx context.Context, channelID string) ([]api.Message, error)
	PrivateMessages(ctx context.Context, userID string) ([]api.Message, error)
	PresignUpload(ctx context.Context, contentType, extension string) (api.Presign, error)
	Upload(ctx context.Context, p api.Presign, filename string, file io.Reader) error
}

// Sender submits outgoing messages via REST and reconciles the result
// with the realtime echo. Sending is not optimistic: the canonical
// record lands in the conversation only after the REST call resolves.
type Sender struct {
	rest          restAPI
	conversations *Conversations
	metrics       *metrics.Metrics
	log           *zerolog.Logger

	mu     sync.Mutex
	userID string
}

// NewSender builds the send coordinator.
func NewSender(rest restAPI, conversations *Conversations, m *metrics.Metrics, logger *zerolog.Logger) *Sender {
	return &Sender{
		rest:          rest,
		conversations: conversations,
		metrics:       m,
		log:           logger,
	}
}

// Bind sets the local user id used to key private rooms.
func (s *Sender) Bind(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

// Send submits a text message to the given room, blocking until the
// REST call resolves. The returned message carries the server-assigned
// id and timestamp and is already appended to the conversation; an
// echo that raced ahead of the response leaves exactly one entry.
func (s *Sender) Send(ctx context.Context, room RoomRef, content string) (Message, error) {
	return s.send(ctx, room, TypeText, content)
}

// SendFile resolves the binary upload through the object-storage
// presign handshake, then sends a file-kind message referencing the
// public URL. Upload failure aborts the send entirely.
func (s *Sender) SendFile(ctx context.Context, room RoomRef, filename, contentType string, file io.Reader) (Message, error) {
	presign, err := s.rest.PresignUpload(ctx, contentType, extension(filename))
	if err != nil {
		s.metrics.SendFailures.Inc()
		return Message{}, sendErr("presign upload", err)
	}
	if err := s.rest.Upload(ctx, presign, filename, file); err != nil {
		s.metrics.SendFailures.Inc()
		return Message{}, sendErr("upload file", err)
	}
	return s.send(ctx, room, TypeFile, presign.PublicURL)
}

// History fetches the room's message list from the REST API and
// replaces the open conversation with it.
func (s *Sender) History(ctx context.Context, room RoomRef) ([]Message, error) {
	var (
		records []api.Message
		err     error
	)
	switch room.Kind {
	case RoomChannel:
		records, err = s.rest.ChannelMessages(ctx, room.ID)
	case RoomPrivate:
		records, err = s.rest.PrivateMessages(ctx, room.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", room, err)
	}

	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()

	msgs := make([]Message, 0, len(records))
	for _, r := range records {
		m := messageFromAPI(r, userID)
		m.Room = room
		msgs = append(msgs, m)
	}
	s.conversations.Open(room).Replace(msgs)
	return msgs, nil
}

func (s *Sender) send(ctx context.Context, room RoomRef, msgType, content string) (Message, error) {
	var (
		record api.Message
		err    error
	)
	switch room.Kind {
	case RoomChannel:
		record, err = s.rest.SendChannelMessage(ctx, room.ID, msgType, content)
	case RoomPrivate:
		record, err = s.rest.SendPrivateMessage(ctx, room.ID, msgType, content)
	default:
		return Message{}, fmt.Errorf("%w: unknown room kind", ErrSendFailure)
	}
	if err != nil {
		s.metrics.SendFailures.Inc()
		return Message{}, sendErr("send message", err)
	}

	s.mu.Lock()
	userID := s.userID
	s.mu.Unlock()

	msg := messageFromAPI(record, userID)
	msg.Room = room
	// Append via dedup: if the realtime echo landed first, this is a
	// no-op and the list still holds exactly one copy.
	s.conversations.Open(room).Append(msg)
	s.metrics.MessagesSent.WithLabelValues(msgType).Inc()
	return msg, nil
}

func sendErr(verb string, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return fmt.Errorf("%s: %w: %w", verb, ErrAuthExpired, err)
	}
	return fmt.Errorf("%s: %w: %w", verb, ErrSendFailure, err)
}

func extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
