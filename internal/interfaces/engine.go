package interfaces

import (
	"context"

	"crypto-signal-bot/internal/types"
)

type Engine interface {
	Step(ctx context.Context, symbol string) (*types.StepResult, error)
}
