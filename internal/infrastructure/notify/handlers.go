// Package notify delivers outbox messages to the outside world.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"retailhub/internal/infrastructure/storage/postgres"
	"retailhub/pkg/logger"
)

// LogHandler writes every message to the log. The worker uses it when no
// webhook is configured.
type LogHandler struct{}

func (LogHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	logger.Info(ctx, "outbox event",
		"event_id", msg.ID.String(),
		"event_type", msg.EventType,
		"store_id", msg.StoreID,
		"aggregate_id", msg.AggregateID.String(),
		"payload", string(msg.Payload),
	)
	return nil
}

// WebhookHandler POSTs the payload as JSON. Any non-2xx answer is an error,
// which makes the relay retry the message later.
type WebhookHandler struct {
	url    string
	client *http.Client
}

func NewWebhookHandler(url string, timeout time.Duration) *WebhookHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookHandler{url: url, client: &http.Client{Timeout: timeout}}
}

func (h *WebhookHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(msg.Payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-ID", msg.ID.String())
	req.Header.Set("X-Event-Type", msg.EventType)
	req.Header.Set("X-Store-ID", msg.StoreID)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s: %w", msg.EventType, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver %s: webhook answered %s", msg.EventType, resp.Status)
	}
	return nil
}
