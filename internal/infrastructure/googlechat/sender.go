package googlechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// UpstreamError - webhook ответил не 2xx
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("google chat webhook returned %d: %s", e.StatusCode, e.Body)
}

type thread struct {
	ThreadKey string `json:"threadKey"`
}

type message struct {
	Text   string  `json:"text"`
	Thread *thread `json:"thread,omitempty"`
}

type WebhookSender struct {
	client *http.Client
	log    *zap.Logger
}

func NewWebhookSender(client *http.Client, log *zap.Logger) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{
		client: client,
		log:    log,
	}
}

// Send отправляет текст в webhook комнаты. Пустой threadKey - сообщение без треда.
func (s *WebhookSender) Send(ctx context.Context, webhookURL, text, threadKey string) error {
	hook, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return err
	}

	msg := message{Text: text}
	if threadKey != "" {
		msg.Thread = &thread{ThreadKey: threadKey}
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.MessageURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		details, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(details)}
	}

	s.log.Debug("webhook message sent",
		zap.String("space_id", hook.SpaceID),
		zap.String("thread_key", threadKey),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
