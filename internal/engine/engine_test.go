package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crypto-signal-bot/internal/store"
	"crypto-signal-bot/internal/tracker"
	"crypto-signal-bot/internal/types"
)

type fakeSource struct {
	mu     sync.Mutex
	series map[string]types.Series
	errs   map[string]error
	calls  []string
}

func (f *fakeSource) RecentCandles(ctx context.Context, symbol string, limit int) (types.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, symbol)
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.series[symbol], nil
}

func (f *fakeSource) RangeCandles(ctx context.Context, symbol string, start, end time.Time) (types.Series, error) {
	return f.series[symbol], nil
}

func (f *fakeSource) Start(ctx context.Context, symbols []string) error { return nil }
func (f *fakeSource) Stop(ctx context.Context)                          {}

// fakeClassifier maps the last close price to a fixed opportunity.
type fakeClassifier struct {
	verdicts map[string]types.Opportunity
	err      error
}

func (f *fakeClassifier) Classify(ctx context.Context, symbol string, series types.Series) (types.Signal, error) {
	if f.err != nil {
		return types.Signal{}, f.err
	}
	last := series[len(series)-1]
	return types.Signal{
		Symbol:      symbol,
		CloseTime:   last.CloseTime,
		ClosePrice:  last.Close,
		Opportunity: f.verdicts[symbol],
	}, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []types.TradeEvent
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, event types.TradeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func (f *fakeNotifier) delivered() []types.TradeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.TradeEvent, len(f.events))
	copy(out, f.events)
	return out
}

func testConfig() *store.Config {
	cfg := &store.Config{FetchLimit: 50}
	cfg.Strategy.Variant = "hybrid"
	return cfg
}

func testSeries(close float64) types.Series {
	open := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return types.Series{
		{OpenTime: open.Add(-time.Minute), CloseTime: open.Add(-time.Millisecond), Close: close, Volume: 1},
		{OpenTime: open, CloseTime: open.Add(time.Minute - time.Millisecond), Close: close, Volume: 2},
	}
}

func newTestEngine(t *testing.T, src *fakeSource, cls *fakeClassifier, ntf *fakeNotifier) *Engine {
	t.Helper()
	t.Setenv("SIGNAL_LOG_DIR", t.TempDir())
	trk, err := tracker.New(tracker.ExitThreshold, 0.15)
	if err != nil {
		t.Fatal(err)
	}
	return New(testConfig(), src, cls, trk, ntf, nil)
}

func TestStepOpensAndNotifies(t *testing.T) {
	src := &fakeSource{series: map[string]types.Series{"BTCUSDT": testSeries(100)}}
	cls := &fakeClassifier{verdicts: map[string]types.Opportunity{"BTCUSDT": types.OpportunityBuy}}
	ntf := &fakeNotifier{}
	eng := newTestEngine(t, src, cls, ntf)

	result, err := eng.Step(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Expected step to succeed, got %v", err)
	}
	if result.Event == nil || result.Event.Kind != types.EventBuyOpened {
		t.Fatalf("Expected BUY_OPENED event, got %+v", result.Event)
	}
	if result.Bars != 2 {
		t.Errorf("Expected 2 bars in result, got %d", result.Bars)
	}

	events := ntf.delivered()
	if len(events) != 1 || events[0].Symbol != "BTCUSDT" {
		t.Errorf("Expected one delivered event, got %+v", events)
	}
	if len(eng.Positions()) != 1 {
		t.Errorf("Expected one open position, got %d", len(eng.Positions()))
	}
}

func TestStepNoneProducesNoEvent(t *testing.T) {
	src := &fakeSource{series: map[string]types.Series{"BTCUSDT": testSeries(100)}}
	cls := &fakeClassifier{verdicts: map[string]types.Opportunity{"BTCUSDT": types.OpportunityNone}}
	ntf := &fakeNotifier{}
	eng := newTestEngine(t, src, cls, ntf)

	result, err := eng.Step(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Expected step to succeed, got %v", err)
	}
	if result.Event != nil {
		t.Errorf("Expected no event for None, got %+v", result.Event)
	}
	if len(ntf.delivered()) != 0 {
		t.Error("Expected no notifications for None")
	}
}

func TestStepFetchErrorLeavesTrackerUntouched(t *testing.T) {
	src := &fakeSource{
		series: map[string]types.Series{},
		errs:   map[string]error{"BTCUSDT": errors.New("connection refused")},
	}
	cls := &fakeClassifier{verdicts: map[string]types.Opportunity{"BTCUSDT": types.OpportunityBuy}}
	ntf := &fakeNotifier{}
	eng := newTestEngine(t, src, cls, ntf)

	if _, err := eng.Step(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("Expected fetch error to surface")
	}
	if len(eng.Positions()) != 0 {
		t.Error("Expected no position after a failed fetch")
	}
	if len(eng.LastSignals()) != 0 {
		t.Error("Expected no recorded signal after a failed fetch")
	}
}

func TestStepClassifierErrorSurfaces(t *testing.T) {
	src := &fakeSource{series: map[string]types.Series{"BTCUSDT": testSeries(100)}}
	cls := &fakeClassifier{err: errors.New("columns misaligned")}
	ntf := &fakeNotifier{}
	eng := newTestEngine(t, src, cls, ntf)

	if _, err := eng.Step(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("Expected classifier error to surface")
	}
	if len(ntf.delivered()) != 0 {
		t.Error("Expected no notifications on classifier error")
	}
}

func TestStepNotifyFailureDoesNotRollBack(t *testing.T) {
	src := &fakeSource{series: map[string]types.Series{"BTCUSDT": testSeries(100)}}
	cls := &fakeClassifier{verdicts: map[string]types.Opportunity{"BTCUSDT": types.OpportunityBuy}}
	ntf := &fakeNotifier{err: errors.New("telegram down")}
	eng := newTestEngine(t, src, cls, ntf)

	result, err := eng.Step(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("Expected step to succeed despite notify failure, got %v", err)
	}
	if result.Event == nil {
		t.Fatal("Expected the event to survive notify failure")
	}
	if len(eng.Positions()) != 1 {
		t.Error("Expected the position to stay open despite notify failure")
	}
}

func TestStepRecordsLastSignalPerSymbol(t *testing.T) {
	src := &fakeSource{series: map[string]types.Series{
		"BTCUSDT": testSeries(100),
		"ETHUSDT": testSeries(50),
	}}
	cls := &fakeClassifier{verdicts: map[string]types.Opportunity{
		"BTCUSDT": types.OpportunityNone,
		"ETHUSDT": types.OpportunityBuy,
	}}
	eng := newTestEngine(t, src, cls, &fakeNotifier{})

	ctx := context.Background()
	if _, err := eng.Step(ctx, "BTCUSDT"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Step(ctx, "ETHUSDT"); err != nil {
		t.Fatal(err)
	}

	signals := eng.LastSignals()
	if len(signals) != 2 {
		t.Fatalf("Expected 2 recorded signals, got %d", len(signals))
	}
	bySymbol := map[string]types.Opportunity{}
	for _, s := range signals {
		bySymbol[s.Symbol] = s.Opportunity
	}
	if bySymbol["BTCUSDT"] != types.OpportunityNone || bySymbol["ETHUSDT"] != types.OpportunityBuy {
		t.Errorf("Unexpected recorded signals: %+v", bySymbol)
	}
}

func TestRunCycleIsolatesFailures(t *testing.T) {
	src := &fakeSource{
		series: map[string]types.Series{
			"BTCUSDT": testSeries(100),
			"ETHUSDT": testSeries(50),
		},
		errs: map[string]error{"SOLUSDT": errors.New("boom")},
	}
	cls := &fakeClassifier{verdicts: map[string]types.Opportunity{
		"BTCUSDT": types.OpportunityBuy,
		"ETHUSDT": types.OpportunityBuy,
	}}
	eng := newTestEngine(t, src, cls, &fakeNotifier{})

	RunCycle(context.Background(), eng, []string{"BTCUSDT", "SOLUSDT", "ETHUSDT"})

	if len(eng.Positions()) != 2 {
		t.Errorf("Expected positions for the 2 healthy symbols, got %d", len(eng.Positions()))
	}
	src.mu.Lock()
	calls := len(src.calls)
	src.mu.Unlock()
	if calls != 3 {
		t.Errorf("Expected all 3 symbols attempted, got %d", calls)
	}
}

func TestFullLifecycleThroughEngine(t *testing.T) {
	src := &fakeSource{series: map[string]types.Series{"BTCUSDT": testSeries(100)}}
	cls := &fakeClassifier{verdicts: map[string]types.Opportunity{"BTCUSDT": types.OpportunityBuy}}
	ntf := &fakeNotifier{}
	eng := newTestEngine(t, src, cls, ntf)
	ctx := context.Background()

	if _, err := eng.Step(ctx, "BTCUSDT"); err != nil {
		t.Fatal(err)
	}

	// Price reaches the 15% threshold; the Sell closes.
	src.series["BTCUSDT"] = testSeries(116)
	cls.verdicts["BTCUSDT"] = types.OpportunitySell

	result, err := eng.Step(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if result.Event == nil || result.Event.Kind != types.EventSoldClosed {
		t.Fatalf("Expected SOLD_CLOSED, got %+v", result.Event)
	}
	if result.Event.Profit != 16 {
		t.Errorf("Expected profit 16, got %f", result.Event.Profit)
	}
	if len(eng.Positions()) != 0 {
		t.Error("Expected no open positions after close")
	}

	events := ntf.delivered()
	if len(events) != 2 {
		t.Fatalf("Expected open and close notifications, got %d", len(events))
	}
	if events[0].Kind != types.EventBuyOpened || events[1].Kind != types.EventSoldClosed {
		t.Errorf("Unexpected event order: %s then %s", events[0].Kind, events[1].Kind)
	}
}
