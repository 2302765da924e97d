// Package eod aggregates the day's journaled trade events into a CSV
// summary. Crypto markets have no close, so "end of day" is the UTC
// midnight rollover.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"crypto-signal-bot/internal/tradelog"
	"crypto-signal-bot/internal/types"
)

type aggRow struct {
	Symbol      string
	Opened      int
	Closed      int
	GrossEntry  float64
	GrossExit   float64
	TotalProfit float64
}

func logDir() string {
	if v := os.Getenv("SIGNAL_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func tradesFile(t time.Time) string {
	return filepath.Join(logDir(), t.UTC().Format("2006-01-02")+".txt")
}

func summaryCSVPath(t time.Time) string {
	return filepath.Join(logDir(), "eod", t.UTC().Format("2006-01-02")+".csv")
}

// SummarizeDay reads the day's trade journal and writes a per-symbol CSV
// summary. Returns the output path, or "" when there is nothing to
// summarize.
func SummarizeDay(t time.Time) (string, error) {
	inPath := tradesFile(t)
	if _, err := os.Stat(inPath); err != nil {
		return "", nil
	}
	f, err := os.Open(inPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var te tradelog.TradeEntry
		if err := json.Unmarshal(sc.Bytes(), &te); err != nil {
			continue
		}
		row := aggs[te.Symbol]
		if row == nil {
			row = &aggRow{Symbol: te.Symbol}
			aggs[te.Symbol] = row
		}
		switch te.Kind {
		case types.EventBuyOpened:
			row.Opened++
			row.GrossEntry += te.EntryPrice
		case types.EventSoldClosed:
			row.Closed++
			row.GrossExit += te.ExitPrice
			row.TotalProfit += te.Profit
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := summaryCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()
	headers := []string{"symbol", "opened", "closed", "gross_entry", "gross_exit", "total_profit"}
	if err := w.Write(headers); err != nil {
		return "", err
	}
	for _, k := range keys {
		r := aggs[k]
		rec := []string{
			r.Symbol,
			strconv.Itoa(r.Opened),
			strconv.Itoa(r.Closed),
			fmt.Sprintf("%.8f", r.GrossEntry),
			fmt.Sprintf("%.8f", r.GrossExit),
			fmt.Sprintf("%.8f", r.TotalProfit),
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	return outPath, w.Error()
}

// SummarizeYesterday summarizes the previous UTC day.
func SummarizeYesterday() (string, error) {
	return SummarizeDay(time.Now().UTC().AddDate(0, 0, -1))
}
