// Package engineobs wraps an Engine with logging and tracing.
package engineobs

import (
	"context"
	"time"

	"crypto-signal-bot/internal/interfaces"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/trace"
	"crypto-signal-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{engine: eng}
}

func (oe *observableEngine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()

	start := time.Now()

	logger.DebugSkip(ctx, 1, "Starting evaluation", "symbol", symbol)

	result, err := oe.engine.Step(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Evaluation failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	fields := []any{
		"symbol", symbol,
		"opportunity", string(result.Signal.Opportunity),
		"bars", result.Bars,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if result.Event != nil {
		fields = append(fields, "event", result.Event.Kind)
	}
	logger.InfoSkip(ctx, 1, "Evaluation completed", fields...)

	return result, nil
}
