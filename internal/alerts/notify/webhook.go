package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Channel delivers rendered content.
type Channel interface {
	Send(ctx context.Context, content string) error
}

// Payload formats understood by WebhookChannel.
const (
	// FormatChat posts {"msgtype":"text","text":{"content":...}} (DingTalk/WeCom style).
	FormatChat = "chat"
	// FormatText posts {"text":...} (Slack, Mattermost and Teams incoming webhooks).
	FormatText = "text"
)

type chatPayload struct {
	MsgType string   `json:"msgtype"`
	Text    chatText `json:"text"`
}

type chatText struct {
	Content string `json:"content"`
}

// WebhookChannel posts alert notifications to an incoming webhook.
type WebhookChannel struct {
	url    string
	format string
	client *http.Client
}

// WebhookOption configures the webhook channel.
type WebhookOption func(*WebhookChannel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(ch *WebhookChannel) {
		if client != nil {
			ch.client = client
		}
	}
}

// WithFormat selects the payload shape; empty keeps FormatChat.
func WithFormat(format string) WebhookOption {
	return func(ch *WebhookChannel) {
		if format != "" {
			ch.format = strings.ToLower(strings.TrimSpace(format))
		}
	}
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(url string, opts ...WebhookOption) (*WebhookChannel, error) {
	if url == "" {
		return nil, errors.New("webhook channel: empty url")
	}
	channel := &WebhookChannel{
		url:    url,
		format: FormatChat,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(channel)
	}
	if channel.format != FormatChat && channel.format != FormatText {
		return nil, fmt.Errorf("webhook channel: unknown format %q", channel.format)
	}
	return channel, nil
}

// Send posts the content in the configured format.
func (w *WebhookChannel) Send(ctx context.Context, content string) error {
	if w == nil || w.url == "" {
		return errors.New("webhook channel: empty url")
	}
	body, err := w.encode(content)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook channel: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func (w *WebhookChannel) encode(content string) ([]byte, error) {
	if w.format == FormatText {
		return json.Marshal(map[string]string{"text": content})
	}
	return json.Marshal(chatPayload{MsgType: "text", Text: chatText{Content: content}})
}
