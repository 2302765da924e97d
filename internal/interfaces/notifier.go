package interfaces

import (
	"context"

	"crypto-signal-bot/internal/types"
)

type Notifier interface {
	Notify(ctx context.Context, event types.TradeEvent) error
}
