// Package tradelog journals signals and trade events as JSONL, one file per
// UTC day, with gzip compression of files older than a retention window.
package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crypto-signal-bot/internal/types"
)

var mu sync.Mutex

// SignalEntry is one journaled classifier verdict.
type SignalEntry struct {
	Time        string  `json:"time"`
	Symbol      string  `json:"symbol"`
	Opportunity string  `json:"opportunity"`
	ClosePrice  float64 `json:"close_price"`
	CloseTime   string  `json:"close_time"`
	Variant     string  `json:"variant,omitempty"`
}

// TradeEntry is one journaled position transition.
type TradeEntry struct {
	Time       string  `json:"time"`
	Symbol     string  `json:"symbol"`
	Kind       string  `json:"kind"`
	EntryPrice float64 `json:"entry_price"`
	EntryTime  string  `json:"entry_time"`
	ExitPrice  float64 `json:"exit_price,omitempty"`
	ExitTime   string  `json:"exit_time,omitempty"`
	Profit     float64 `json:"profit,omitempty"`
}

func logDir() string {
	if v := os.Getenv("SIGNAL_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func tradesFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), d+".txt")
}

func signalsFilepath(t time.Time) string {
	d := t.UTC().Format("2006-01-02")
	return filepath.Join(logDir(), "signals", d+".txt")
}

// AppendTrade journals a trade event.
func AppendTrade(event types.TradeEvent) error {
	now := time.Now().UTC()
	e := TradeEntry{
		Time:       now.Format("2006-01-02 15:04:05"),
		Symbol:     event.Symbol,
		Kind:       event.Kind,
		EntryPrice: event.EntryPrice,
		EntryTime:  event.EntryTime.UTC().Format(time.RFC3339),
		Profit:     event.Profit,
	}
	if event.Kind == types.EventSoldClosed {
		e.ExitPrice = event.ExitPrice
		e.ExitTime = event.ExitTime.UTC().Format(time.RFC3339)
	}
	return appendLine(tradesFilepath(now), e)
}

// AppendSignal journals a classifier verdict.
func AppendSignal(sig types.Signal, variant string) error {
	now := time.Now().UTC()
	e := SignalEntry{
		Time:        now.Format("2006-01-02 15:04:05"),
		Symbol:      sig.Symbol,
		Opportunity: string(sig.Opportunity),
		ClosePrice:  sig.ClosePrice,
		CloseTime:   sig.CloseTime.UTC().Format(time.RFC3339),
		Variant:     variant,
	}
	return appendLine(signalsFilepath(now), e)
}

func appendLine(path string, v any) error {
	mu.Lock()
	defer mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, _ := json.Marshal(v)
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips journal files older than retentionDays and removes the
// originals.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	root := logDir()
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e2 := os.Stat(gz); e2 == nil {
			_ = os.Remove(p)
			return nil
		}

		in, e3 := os.Open(p)
		if e3 != nil {
			return nil
		}
		defer in.Close()

		out, e4 := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e4 != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e5 := io.Copy(gw, in); e5 == nil {
			_ = gw.Close()
			_ = out.Close()
			_ = os.Remove(p)
		} else {
			_ = gw.Close()
			_ = out.Close()
		}
		return nil
	})
}
