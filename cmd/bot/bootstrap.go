package main

import (
	"context"
	"fmt"
	"os"

	"crypto-signal-bot/internal/api"
	"crypto-signal-bot/internal/binance"
	"crypto-signal-bot/internal/binance/sourceobs"
	"crypto-signal-bot/internal/engine"
	"crypto-signal-bot/internal/engine/engineobs"
	"crypto-signal-bot/internal/interfaces"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/metrics"
	"crypto-signal-bot/internal/notify"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/strategy"
	"crypto-signal-bot/internal/trace"
	"crypto-signal-bot/internal/tracker"
	"crypto-signal-bot/internal/tradelog"

	"github.com/joho/godotenv"
)

// initializeSystem loads env vars and brings up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

func configPath() string {
	if v := os.Getenv("SIGNAL_BOT_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}

// compressOldLogs gzips journal files past the configured retention.
func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("SIGNAL_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

// initializeSource builds the candle source with observability middleware.
func initializeSource(ctx context.Context, cfg *store.Config) interfaces.CandleSource {
	src := binance.New(binance.Params{
		Interval:      cfg.Interval,
		DataSource:    cfg.DataSource,
		StreamEnabled: cfg.Stream.Enabled,
	})

	if cfg.DataSource == "STATIC" {
		logger.Warn(ctx, "Using STATIC synthetic candle data for testing")
	} else if cfg.Stream.Enabled {
		logger.Info(ctx, "Using LIVE Binance candles with websocket stream")
	} else {
		logger.Info(ctx, "Using LIVE Binance candles over REST")
	}

	return sourceobs.Wrap(src)
}

func initializeClassifier(cfg *store.Config) (*strategy.Classifier, error) {
	ind := cfg.Indicators
	return strategy.NewClassifier(cfg.Strategy.Variant, strategy.Params{
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
}

func initializeTracker(cfg *store.Config) (*tracker.Tracker, error) {
	return tracker.New(tracker.ExitPolicy(cfg.Exit.Policy), cfg.Exit.ProfitRatio)
}

func initializeNotifier(ctx context.Context, cfg *store.Config) (interfaces.Notifier, error) {
	n, err := notify.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Notifier ready", "channel", cfg.Notify.Channel)
	return n, nil
}

// initializeEngine builds the engine with observability middleware.
func initializeEngine(cfg *store.Config, src interfaces.CandleSource, cls interfaces.Classifier, trk *tracker.Tracker, ntf interfaces.Notifier, met *metrics.Metrics) (interfaces.Engine, *engine.Engine) {
	eng := engine.New(cfg, src, cls, trk, ntf, met)
	return engineobs.Wrap(eng), eng
}

// writeEODSummary runs a summarizer and logs the outcome. A failed summary
// is an operational warning, never fatal.
func writeEODSummary(ctx context.Context, summarize func() (string, error)) {
	if p, err := summarize(); err != nil {
		logger.Warn(ctx, "Failed to write EOD summary", "error", err)
	} else if p != "" {
		logger.Info(ctx, "EOD summary written", "path", p)
	}
}

// startServers brings up the metrics endpoint and the status API.
func startServers(ctx context.Context, cfg *store.Config, eng *engine.Engine) {
	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
			logger.ErrorWithErr(ctx, "Metrics server exited", err)
		}
	}()
	go func() {
		if err := api.NewServer(eng).Serve(ctx, cfg.APIAddr); err != nil {
			logger.ErrorWithErr(ctx, "Status API exited", err)
		}
	}()
}
