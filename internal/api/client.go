package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnauthorized is returned when any call comes back 401. The
// registered unauthorized hook fires before it is returned, so token
// invalidation detected server-side reaches the forced-logout path.
var ErrUnauthorized = errors.New("api: unauthorized")

// TokenFunc yields the current bearer token, or "" when logged out.
type TokenFunc func() string

// Client talks to the REST API.
type Client struct {
	baseURL        string
	http           *http.Client
	token          TokenFunc
	onUnauthorized func()
	log            *zerolog.Logger
}

// NewClient builds a REST client. All calls use a bounded timeout.
func NewClient(baseURL string, timeout time.Duration, token TokenFunc, logger *zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		token:   token,
		log:     logger,
	}
}

// OnUnauthorized registers a hook fired whenever a call returns 401.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// LoginRequest carries credentials for the user login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginResponse is the auth endpoint response.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		ID   string `json:"_id"`
		Name string `json:"name"`
	} `json:"user"`
}

// Login authenticates against the user login endpoint.
func (c *Client) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/user/login", req, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// SendChannelMessage posts a message to a channel and returns the
// canonical record with the server-assigned id and timestamp.
func (c *Client) SendChannelMessage(ctx context.Context, channelID, msgType, content string) (Message, error) {
	req := struct {
		Channel string `json:"channel"`
		Type    string `json:"type"`
		Content string `json:"content"`
	}{channelID, msgType, content}

	var resp struct {
		Data Message `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/messages", req, &resp); err != nil {
		return Message{}, err
	}
	return resp.Data, nil
}

// SendPrivateMessage posts a direct message to another user.
func (c *Client) SendPrivateMessage(ctx context.Context, receiverID, msgType, content string) (Message, error) {
	req := struct {
		ReceiverID string `json:"receiverId"`
		Type       string `json:"type"`
		Content    string `json:"content"`
	}{receiverID, msgType, content}

	var resp struct {
		Data Message `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/chat", req, &resp); err != nil {
		return Message{}, err
	}
	return resp.Data, nil
}

// ChannelMessages fetches the message history of a channel.
func (c *Client) ChannelMessages(ctx context.Context, channelID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/channel/"+url.PathEscape(channelID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// PrivateMessages fetches the direct-message history with another user.
func (c *Client) PrivateMessages(ctx context.Context, userID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/"+url.PathEscape(userID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Channels lists all channels with their membership. The endpoint has
// shipped both `{channels: [...]}` and a raw array; accept either.
func (c *Client) Channels(ctx context.Context) ([]Channel, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/channels", nil, &raw); err != nil {
		return nil, err
	}

	var channels []Channel
	if err := json.Unmarshal(raw, &channels); err == nil {
		return channels, nil
	}
	var wrapped struct {
		Channels []Channel `json:"channels"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode channels: %w", err)
	}
	return wrapped.Channels, nil
}

// MemberChannels lists channels the given user is a member of.
func (c *Client) MemberChannels(ctx context.Context, userID string) ([]Channel, error) {
	channels, err := c.Channels(ctx)
	if err != nil {
		return nil, err
	}
	var mine []Channel
	for _, ch := range channels {
		if ch.HasMember(userID) {
			mine = append(mine, ch)
		}
	}
	return mine, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.log.Warn().Str("path", path).Msg("rest call unauthorized")
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
