package strategy

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a series is too short to classify at
// all. Indicator warm-up gaps on longer series are not an error; they are
// mean-filled instead.
var ErrInsufficientData = errors.New("insufficient candle data")

// ClassificationError wraps an unexpected failure during rule evaluation.
// It always carries the underlying cause.
type ClassificationError struct {
	Symbol string
	Err    error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed for %s: %v", e.Symbol, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }
