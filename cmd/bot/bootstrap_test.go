package main

import (
	"context"
	"errors"
	"testing"
)

func TestWriteEODSummary(t *testing.T) {
	ctx := context.Background()

	// A failed summarizer is logged as a warning, never panics or aborts.
	writeEODSummary(ctx, func() (string, error) {
		return "", errors.New("journal unreadable")
	})

	// Nothing to summarize is quiet.
	writeEODSummary(ctx, func() (string, error) {
		return "", nil
	})

	var called bool
	writeEODSummary(ctx, func() (string, error) {
		called = true
		return "logs/eod/2024-01-01.csv", nil
	})
	if !called {
		t.Error("Expected summarizer to be invoked")
	}
}
