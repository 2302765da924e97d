package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-signal-bot/internal/engine"
	"crypto-signal-bot/internal/eod"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/metrics"
	"crypto-signal-bot/internal/trace"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	must(err)

	compressOldLogs(ctx)

	cls, err := initializeClassifier(cfg)
	must(err)
	trk, err := initializeTracker(cfg)
	must(err)
	ntf, err := initializeNotifier(ctx, cfg)
	must(err)

	src := initializeSource(ctx, cfg)
	met := metrics.NewMetrics()
	wrapped, eng := initializeEngine(cfg, src, cls, trk, ntf, met)

	if err := src.Start(ctx, cfg.Symbols); err != nil {
		logger.ErrorWithErr(ctx, "Failed to start candle stream, continuing on REST only", err)
	}

	startServers(ctx, cfg, eng)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	tick := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer tick.Stop()
	eodTick := time.NewTicker(time.Minute)
	defer eodTick.Stop()

	logger.Info(ctx, "Bot started",
		"symbols", len(cfg.Symbols),
		"interval", cfg.Interval,
		"variant", cfg.Strategy.Variant,
		"exit_policy", cfg.Exit.Policy,
		"poll_seconds", cfg.PollSeconds,
	)

	// First evaluation runs right away; the ticker covers the rest.
	engine.RunCycle(ctx, wrapped, cfg.Symbols)

	lastDay := time.Now().UTC().Format("2006-01-02")
	for {
		select {
		case <-tick.C:
			engine.RunCycle(ctx, wrapped, cfg.Symbols)
		case <-eodTick.C:
			day := time.Now().UTC().Format("2006-01-02")
			if day != lastDay {
				lastDay = day
				writeEODSummary(ctx, eod.SummarizeYesterday)
			}
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			src.Stop(ctx)
			writeEODSummary(ctx, func() (string, error) {
				return eod.SummarizeDay(time.Now().UTC())
			})
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = trace.Shutdown(shutdownCtx)
			shutdownCancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
