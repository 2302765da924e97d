// Command backfill replays a historical candle range through the
// classifier and tracker and prints the trade events it would have
// produced. Useful for sanity-checking a strategy variant offline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/strategy"
	"crypto-signal-bot/internal/tracker"
	"crypto-signal-bot/internal/types"

	"github.com/joho/godotenv"
)

func main() {
	var (
		symbol  = flag.String("symbol", "BTCUSDT", "symbol to backfill")
		days    = flag.Int("days", 1, "number of days of history to replay")
		cfgPath = flag.String("config", "config.yaml", "config file path")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := store.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ind := cfg.Indicators
	cls, err := strategy.NewClassifier(cfg.Strategy.Variant, strategy.Params{
		RSIPeriod:  ind.RSIPeriod,
		BBWindow:   ind.BBWindow,
		BBStdDev:   ind.BBStdDev,
		MAFast:     ind.MAFast,
		MASlow:     ind.MASlow,
		EMAFast:    ind.EMAFast,
		EMASlow:    ind.EMASlow,
		MACDFast:   ind.MACDFast,
		MACDSlow:   ind.MACDSlow,
		MACDSignal: ind.MACDSignal,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad strategy config: %v\n", err)
		os.Exit(1)
	}

	trk, err := tracker.New(tracker.ExitPolicy(cfg.Exit.Policy), cfg.Exit.ProfitRatio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad exit config: %v\n", err)
		os.Exit(1)
	}

	src := binance.New(binance.Params{
		Interval:   cfg.Interval,
		DataSource: cfg.DataSource,
	})

	ctx := context.Background()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	series, err := src.RangeCandles(ctx, *symbol, start, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fetch failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Replaying %d bars of %s (%s) through variant %q, exit policy %q\n",
		len(series), *symbol, cfg.Interval, cfg.Strategy.Variant, cfg.Exit.Policy)

	var signals, events int
	for i := 2; i <= len(series); i++ {
		window := series[:i]
		if len(window) > cfg.FetchLimit {
			window = window[len(window)-cfg.FetchLimit:]
		}

		sig, err := cls.Classify(ctx, *symbol, window)
		if err != nil {
			continue
		}
		if sig.Opportunity != types.OpportunityNone {
			signals++
		}
		if event := trk.Apply(sig); event != nil {
			events++
			b, _ := json.Marshal(event)
			fmt.Println(string(b))
		}
	}

	fmt.Printf("Done: %d signals, %d trade events, %d positions still open\n",
		signals, events, len(trk.Positions()))
}
