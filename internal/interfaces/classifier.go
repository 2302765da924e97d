package interfaces

import (
	"context"

	"crypto-signal-bot/internal/types"
)

type Classifier interface {
	Classify(ctx context.Context, symbol string, series types.Series) (types.Signal, error)
}
