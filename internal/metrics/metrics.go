// Package metrics exposes Prometheus metrics for the signal engine.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crypto-signal-bot/internal/logger"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec // labels: outcome=ok|fetch_error|insufficient_data|classification_error
	SignalsTotal     *prometheus.CounterVec // labels: opportunity
	TradeEventsTotal *prometheus.CounterVec // labels: kind
	NotifyFailures   prometheus.Counter
	OpenPositions    prometheus.Gauge
	EvalDuration     prometheus.Histogram
	FetchDuration    prometheus.Histogram
}

// NewMetrics registers and returns all bot metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_evaluations_total",
			Help: "Symbol evaluations by outcome",
		}, []string{"outcome"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_signals_total",
			Help: "Classifier verdicts by opportunity",
		}, []string{"opportunity"}),
		TradeEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalbot_trade_events_total",
			Help: "Position transitions by kind",
		}, []string{"kind"}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalbot_notify_failures_total",
			Help: "Notification deliveries that failed",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalbot_open_positions",
			Help: "Symbols with a currently open position",
		}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_evaluation_duration_seconds",
			Help:    "Full evaluation latency per symbol (fetch + classify + track)",
			Buckets: prometheus.DefBuckets,
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalbot_fetch_duration_seconds",
			Help:    "Candle fetch latency per symbol",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.SignalsTotal,
		m.TradeEventsTotal,
		m.NotifyFailures,
		m.OpenPositions,
		m.EvalDuration,
		m.FetchDuration,
	)
	return m
}

// Serve starts the /metrics endpoint on addr. Blocks until the server
// exits; run it in a goroutine.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
