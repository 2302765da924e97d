package interfaces

import (
	"context"
	"time"

	"crypto-signal-bot/internal/types"
)

type CandleSource interface {
	RecentCandles(ctx context.Context, symbol string, limit int) (types.Series, error)
	RangeCandles(ctx context.Context, symbol string, start, end time.Time) (types.Series, error)
	Start(ctx context.Context, symbols []string) error
	Stop(ctx context.Context)
}
