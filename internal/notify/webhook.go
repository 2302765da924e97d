package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crypto-signal-bot/internal/interfaces"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/types"
)

// WebhookNotifier POSTs trade events to a generic HTTP endpoint.
type WebhookNotifier struct {
	url      string
	renderer *Renderer
	client   *http.Client
}

var _ interfaces.Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(url string, r *Renderer) *WebhookNotifier {
	return &WebhookNotifier{
		url:      url,
		renderer: r,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, event types.TradeEvent) error {
	payload := map[string]any{
		"event":   event,
		"title":   w.renderer.Title(event),
		"message": w.renderer.Render(event),
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	logger.Info(ctx, "Webhook alert sent", "symbol", event.Symbol, "kind", event.Kind)
	return nil
}
