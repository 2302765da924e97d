package binance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const sampleKlineMessage = `{
  "stream": "btcusdt@kline_1m",
  "data": {
    "e": "kline",
    "E": 1700000060123,
    "s": "BTCUSDT",
    "k": {
      "t": 1700000000000,
      "T": 1700000059999,
      "s": "BTCUSDT",
      "i": "1m",
      "f": 100,
      "L": 941,
      "o": "35000.10",
      "c": "35010.50",
      "h": "35020.00",
      "l": "34990.00",
      "v": "12.5",
      "n": 842,
      "x": true,
      "q": "437631.25",
      "V": "6.25",
      "Q": "218815.62",
      "B": "123456"
    }
  }
}`

func TestCombinedMessageDecode(t *testing.T) {
	var env combinedMessage
	if err := json.Unmarshal([]byte(sampleKlineMessage), &env); err != nil {
		t.Fatalf("Expected message to decode, got %v", err)
	}
	if env.Stream != "btcusdt@kline_1m" {
		t.Errorf("Unexpected stream name %q", env.Stream)
	}
	if env.Data.EventType != "kline" || env.Data.Symbol != "BTCUSDT" {
		t.Errorf("Unexpected event envelope: %+v", env.Data)
	}
	// "E" and "L" are numeric keys that differ from "e" and "l" only by
	// case; they must land in their own fields, not corrupt the decode.
	if env.Data.EventTime != 1700000060123 {
		t.Errorf("Expected event time 1700000060123, got %d", env.Data.EventTime)
	}
	if env.Data.Kline.FirstTradeID != 100 || env.Data.Kline.LastTradeID != 941 {
		t.Errorf("Unexpected trade IDs: %d / %d", env.Data.Kline.FirstTradeID, env.Data.Kline.LastTradeID)
	}
	if env.Data.Kline.Low != "34990.00" {
		t.Errorf("Expected low price 34990.00, got %q", env.Data.Kline.Low)
	}
	if !env.Data.Kline.Final {
		t.Error("Expected bar marked final")
	}
}

func TestWSKlineToCandle(t *testing.T) {
	var env combinedMessage
	if err := json.Unmarshal([]byte(sampleKlineMessage), &env); err != nil {
		t.Fatal(err)
	}

	candle, err := env.Data.Kline.toCandle()
	if err != nil {
		t.Fatalf("Expected conversion to succeed, got %v", err)
	}
	if !candle.OpenTime.Equal(time.UnixMilli(1700000000000).UTC()) {
		t.Errorf("Unexpected open time %v", candle.OpenTime)
	}
	if candle.Open != 35000.10 || candle.Close != 35010.50 {
		t.Errorf("Unexpected prices: %+v", candle)
	}
	if candle.High != 35020.00 || candle.Low != 34990.00 {
		t.Errorf("Unexpected range: %+v", candle)
	}
	if candle.Volume != 12.5 || candle.Trades != 842 {
		t.Errorf("Unexpected volume/trades: %+v", candle)
	}
}

func TestWSKlineToCandleBadField(t *testing.T) {
	k := wsKline{Open: "x", Close: "1", High: "1", Low: "1", Volume: "1",
		QuoteVolume: "1", TakerBuyBaseVol: "1", TakerBuyQuoteVol: "1"}
	if _, err := k.toCandle(); err == nil {
		t.Error("Expected error for unparseable field")
	}
}

func TestReadLoopReleasesConnectionWatcher(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &stream{cache: newCandleCache()}

	baseline := runtime.NumGoroutine()

	// Each cycle's watcher must exit with its connection, not linger until
	// the stream context is cancelled.
	for i := 0; i < 5; i++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			t.Fatalf("Expected dial to succeed, got %v", err)
		}
		s.readLoop(ctx, conn)
		conn.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= baseline+1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("Expected watcher goroutines to drain, have %d (baseline %d)",
		runtime.NumGoroutine(), baseline)
}

func TestStartIsNoopWhenDisabled(t *testing.T) {
	client := New(Params{DataSource: "STATIC", StreamEnabled: true})
	if err := client.Start(context.Background(), []string{"BTCUSDT"}); err != nil {
		t.Errorf("Expected no-op start in STATIC mode, got %v", err)
	}
	if client.stream != nil {
		t.Error("Expected no stream in STATIC mode")
	}

	client = New(Params{DataSource: "LIVE", StreamEnabled: false})
	if err := client.Start(context.Background(), []string{"BTCUSDT"}); err != nil {
		t.Errorf("Expected no-op start when streaming disabled, got %v", err)
	}
	if client.stream != nil {
		t.Error("Expected no stream when disabled")
	}

	// Stop without a stream is safe.
	client.Stop(context.Background())
}
