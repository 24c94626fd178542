// Package googlechat - клиенты Google Chat: входящий webhook и Chat API участников пространства.
package googlechat

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	webhookHost = "chat.googleapis.com"

	// ReplyOption отвечает в тред по threadKey или создает новый
	ReplyOption = "REPLY_MESSAGE_FALLBACK_TO_NEW_THREAD"
)

var ErrInvalidWebhookURL = errors.New("invalid google chat webhook url")

// WebhookURL - разобранный адрес входящего webhook:
// https://chat.googleapis.com/v1/spaces/{space}/messages?key=...&token=...
type WebhookURL struct {
	SpaceID string
	Key     string
	Token   string
	raw     *url.URL
}

func ParseWebhookURL(raw string) (*WebhookURL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidWebhookURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidWebhookURL, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidWebhookURL, u.Scheme)
	}
	if u.Host != webhookHost {
		return nil, fmt.Errorf("%w: host %q", ErrInvalidWebhookURL, u.Host)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "v1" || parts[1] != "spaces" || parts[3] != "messages" || parts[2] == "" {
		return nil, fmt.Errorf("%w: path %q", ErrInvalidWebhookURL, u.Path)
	}

	q := u.Query()
	key := q.Get("key")
	if key == "" {
		return nil, fmt.Errorf("%w: missing key", ErrInvalidWebhookURL)
	}

	return &WebhookURL{
		SpaceID: parts[2],
		Key:     key,
		Token:   q.Get("token"),
		raw:     u,
	}, nil
}

// Space возвращает имя ресурса пространства для Chat API
func (w *WebhookURL) Space() string {
	return "spaces/" + w.SpaceID
}

// MessageURL - адрес для POST сообщения с ответом в тред
func (w *WebhookURL) MessageURL() string {
	u := *w.raw
	q := u.Query()
	q.Set("messageReplyOption", ReplyOption)
	u.RawQuery = q.Encode()
	return u.String()
}
