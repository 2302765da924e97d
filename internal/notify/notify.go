// Package notify delivers trade events to external channels. The core
// engine hands over UTC events; presentation concerns such as timezone
// conversion live in the renderer here.
package notify

import (
	"context"
	"fmt"
	"os"
	"time"

	"crypto-signal-bot/internal/interfaces"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/types"
)

// NewFromConfig builds the notifier selected by the configuration.
// Telegram credentials come from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
func NewFromConfig(cfg *store.Config) (interfaces.Notifier, error) {
	loc, err := time.LoadLocation(cfg.Notify.Timezone)
	if err != nil {
		return nil, fmt.Errorf("notify: invalid timezone %q: %w", cfg.Notify.Timezone, err)
	}
	r := &Renderer{Location: loc}

	switch cfg.Notify.Channel {
	case "telegram":
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		chatID := os.Getenv("TELEGRAM_CHAT_ID")
		if token == "" || chatID == "" {
			return nil, fmt.Errorf("notify: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set")
		}
		return NewTelegramNotifier(token, chatID, r), nil
	case "webhook":
		return NewWebhookNotifier(cfg.Notify.WebhookURL, r), nil
	default:
		return NewLogNotifier(r), nil
	}
}

// LogNotifier writes rendered alerts to the log. Useful for development and
// dry runs.
type LogNotifier struct {
	renderer *Renderer
}

var _ interfaces.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(r *Renderer) *LogNotifier {
	return &LogNotifier{renderer: r}
}

func (n *LogNotifier) Notify(ctx context.Context, event types.TradeEvent) error {
	logger.Info(ctx, "Notification",
		"symbol", event.Symbol,
		"kind", event.Kind,
		"message", n.renderer.Render(event),
	)
	return nil
}
