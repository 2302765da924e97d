// Package sourceobs wraps a CandleSource with logging and tracing.
package sourceobs

import (
	"context"
	"time"

	"crypto-signal-bot/internal/interfaces"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/trace"
	"crypto-signal-bot/internal/types"
)

type observableSource struct {
	source interfaces.CandleSource
}

var _ interfaces.CandleSource = (*observableSource)(nil)

func Wrap(source interfaces.CandleSource) interfaces.CandleSource {
	return &observableSource{source: source}
}

func (ob *observableSource) RecentCandles(ctx context.Context, symbol string, limit int) (types.Series, error) {
	ctx, span := trace.StartSpan(ctx, "source.RecentCandles")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching recent candles", "symbol", symbol, "limit", limit)

	series, err := ob.source.RecentCandles(ctx, symbol, limit)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "symbol", symbol, "limit", limit)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched", "symbol", symbol, "count", len(series))
	return series, nil
}

func (ob *observableSource) RangeCandles(ctx context.Context, symbol string, start, end time.Time) (types.Series, error) {
	ctx, span := trace.StartSpan(ctx, "source.RangeCandles")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Fetching candle range",
		"symbol", symbol,
		"start", start.Format(time.RFC3339),
		"end", end.Format(time.RFC3339),
	)

	series, err := ob.source.RangeCandles(ctx, symbol, start, end)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candle range", err, "symbol", symbol)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Candle range fetched", "symbol", symbol, "count", len(series))
	return series, nil
}

func (ob *observableSource) Start(ctx context.Context, symbols []string) error {
	ctx, span := trace.StartSpan(ctx, "source.Start")
	defer span.End()

	if err := ob.source.Start(ctx, symbols); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start candle source", err)
		return err
	}
	return nil
}

func (ob *observableSource) Stop(ctx context.Context) {
	ob.source.Stop(ctx)
}
