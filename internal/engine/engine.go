// Package engine runs the per-symbol evaluation pipeline: fetch candles,
// classify the latest bar, feed the position tracker, deliver notifications.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"crypto-signal-bot/internal/interfaces"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/metrics"
	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/strategy"
	"crypto-signal-bot/internal/tracker"
	"crypto-signal-bot/internal/tradelog"
	"crypto-signal-bot/internal/types"
)

type Engine struct {
	cfg        *store.Config
	source     interfaces.CandleSource
	classifier interfaces.Classifier
	trk        *tracker.Tracker
	notifier   interfaces.Notifier
	met        *metrics.Metrics

	// One evaluation in flight per symbol at a time; concurrent steps for
	// the same symbol would race on the tracker's single-open-position
	// invariant.
	symMu   sync.Mutex
	symLock map[string]*sync.Mutex

	sigMu       sync.Mutex
	lastSignals map[string]types.Signal
}

var _ interfaces.Engine = (*Engine)(nil)

func New(cfg *store.Config, source interfaces.CandleSource, classifier interfaces.Classifier, trk *tracker.Tracker, notifier interfaces.Notifier, met *metrics.Metrics) *Engine {
	return &Engine{
		cfg:         cfg,
		source:      source,
		classifier:  classifier,
		trk:         trk,
		notifier:    notifier,
		met:         met,
		symLock:     make(map[string]*sync.Mutex),
		lastSignals: make(map[string]types.Signal),
	}
}

// Step evaluates one symbol once: fetch, classify, track, notify. Fetch and
// classification failures are returned to the caller; they mean "no signal
// this poll" and never disturb the tracker state.
func (e *Engine) Step(ctx context.Context, symbol string) (*types.StepResult, error) {
	lock := e.lockFor(symbol)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	fetchStart := time.Now()
	series, err := e.source.RecentCandles(ctx, symbol, e.cfg.FetchLimit)
	if err != nil {
		e.countOutcome("fetch_error")
		return nil, err
	}
	e.observeFetch(time.Since(fetchStart))

	sig, err := e.classifier.Classify(ctx, symbol, series)
	if err != nil {
		if errors.Is(err, strategy.ErrInsufficientData) {
			e.countOutcome("insufficient_data")
		} else {
			e.countOutcome("classification_error")
		}
		return nil, err
	}

	e.recordSignal(sig)
	if sig.Opportunity != types.OpportunityNone {
		logger.Signal(ctx, symbol, string(sig.Opportunity), sig.ClosePrice)
	}
	if err := tradelog.AppendSignal(sig, e.cfg.Strategy.Variant); err != nil {
		logger.Warn(ctx, "Failed to journal signal", "symbol", symbol, "error", err)
	}

	result := &types.StepResult{Symbol: symbol, Signal: sig, Bars: len(series)}

	event := e.trk.Apply(sig)
	if event != nil {
		result.Event = event
		e.handleEvent(ctx, event)
	}

	e.countOutcome("ok")
	e.observeEval(time.Since(start))
	return result, nil
}

func (e *Engine) handleEvent(ctx context.Context, event *types.TradeEvent) {
	logger.Trade(ctx, event.Symbol, event.Kind, event.EntryPrice, event.ExitPrice, event.Profit)

	if err := tradelog.AppendTrade(*event); err != nil {
		logger.Warn(ctx, "Failed to journal trade event", "symbol", event.Symbol, "error", err)
	}

	if e.met != nil {
		e.met.TradeEventsTotal.WithLabelValues(event.Kind).Inc()
		e.met.OpenPositions.Set(float64(len(e.trk.Positions())))
	}

	if err := e.notifier.Notify(ctx, *event); err != nil {
		// Delivery failure must not roll back the position transition;
		// the event is already journaled.
		logger.ErrorWithErr(ctx, "Notification delivery failed", err,
			"symbol", event.Symbol, "kind", event.Kind)
		if e.met != nil {
			e.met.NotifyFailures.Inc()
		}
	}
}

// RunCycle evaluates all configured symbols concurrently through the given
// (possibly wrapped) engine. One symbol's failure never aborts the others.
func RunCycle(ctx context.Context, eng interfaces.Engine, symbols []string) {
	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if _, err := eng.Step(ctx, symbol); err != nil {
				logger.Warn(ctx, "Symbol skipped this poll", "symbol", symbol, "error", err)
			}
		}(sym)
	}
	wg.Wait()
}

// Positions returns the tracker's open positions, for the status API.
func (e *Engine) Positions() []tracker.Position {
	return e.trk.Positions()
}

// LastSignals returns the most recent signal per symbol.
func (e *Engine) LastSignals() []types.Signal {
	e.sigMu.Lock()
	defer e.sigMu.Unlock()
	out := make([]types.Signal, 0, len(e.lastSignals))
	for _, s := range e.lastSignals {
		out = append(out, s)
	}
	return out
}

func (e *Engine) recordSignal(sig types.Signal) {
	e.sigMu.Lock()
	e.lastSignals[sig.Symbol] = sig
	e.sigMu.Unlock()
	if e.met != nil {
		e.met.SignalsTotal.WithLabelValues(string(sig.Opportunity)).Inc()
	}
}

func (e *Engine) lockFor(symbol string) *sync.Mutex {
	e.symMu.Lock()
	defer e.symMu.Unlock()
	lock, ok := e.symLock[symbol]
	if !ok {
		lock = &sync.Mutex{}
		e.symLock[symbol] = lock
	}
	return lock
}

func (e *Engine) countOutcome(outcome string) {
	if e.met != nil {
		e.met.EvaluationsTotal.WithLabelValues(outcome).Inc()
	}
}

func (e *Engine) observeEval(d time.Duration) {
	if e.met != nil {
		e.met.EvalDuration.Observe(d.Seconds())
	}
}

func (e *Engine) observeFetch(d time.Duration) {
	if e.met != nil {
		e.met.FetchDuration.Observe(d.Seconds())
	}
}
