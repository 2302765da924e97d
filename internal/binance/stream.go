package binance

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/types"
)

// stream reads the combined Binance kline stream and feeds closed bars into
// the candle cache.
type stream struct {
	url    string
	cache  *candleCache
	cancel context.CancelFunc
	done   chan struct{}
}

// combinedMessage is the envelope of the combined-stream endpoint.
type combinedMessage struct {
	Stream string       `json:"stream"`
	Data   klineMessage `json:"data"`
}

// klineMessage declares both "e" and "E" explicitly: encoding/json falls
// back to case-insensitive key matching, so without an exact "E" field the
// numeric event time would be routed into EventType and the whole message
// would fail to unmarshal.
type klineMessage struct {
	EventType string  `json:"e"`
	EventTime int64   `json:"E"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

// wsKline mirrors the kline payload field names of the stream protocol.
// The trade-ID fields keep "f"/"L" from case-insensitively colliding with
// the "l" low price.
type wsKline struct {
	OpenTime         int64  `json:"t"`
	CloseTime        int64  `json:"T"`
	Open             string `json:"o"`
	Close            string `json:"c"`
	High             string `json:"h"`
	Low              string `json:"l"`
	FirstTradeID     int64  `json:"f"`
	LastTradeID      int64  `json:"L"`
	Volume           string `json:"v"`
	Trades           int64  `json:"n"`
	Final            bool   `json:"x"`
	QuoteVolume      string `json:"q"`
	TakerBuyBaseVol  string `json:"V"`
	TakerBuyQuoteVol string `json:"Q"`
}

// Start opens the websocket stream for the given symbols. No-op in STATIC
// mode or when streaming is disabled.
func (c *Client) Start(ctx context.Context, symbols []string) error {
	if c.p.DataSource == "STATIC" || !c.p.StreamEnabled {
		return nil
	}
	if c.stream != nil {
		return nil
	}

	parts := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		c.cache.initBuffer(sym, c.p.CacheSize)
		parts = append(parts, strings.ToLower(sym)+"@kline_"+c.p.Interval)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &stream{
		url:    c.p.WSURL + "/stream?streams=" + strings.Join(parts, "/"),
		cache:  c.cache,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.stream = s
	go s.run(runCtx)
	return nil
}

// Stop closes the stream and waits for the read loop to exit.
func (c *Client) Stop(ctx context.Context) {
	if c.stream == nil {
		return
	}
	c.stream.cancel()
	select {
	case <-c.stream.done:
	case <-ctx.Done():
	}
	c.stream = nil
}

// run reads the stream, reconnecting with backoff until cancelled.
func (s *stream) run(ctx context.Context) {
	defer close(s.done)

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			logger.Warn(ctx, "Kline stream dial failed, retrying",
				"url", s.url, "error", err, "backoff", backoff.String())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		logger.Info(ctx, "Kline stream connected", "url", s.url)
		backoff = time.Second
		s.readLoop(ctx, conn)
		conn.Close()
	}
}

func (s *stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	// The watcher is tied to this connection's lifetime, not the stream's;
	// otherwise every reconnect would leave a blocked goroutine behind.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-connDone:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn(ctx, "Kline stream read failed, reconnecting", "error", err)
			}
			return
		}

		var env combinedMessage
		if err := json.Unmarshal(msg, &env); err != nil {
			logger.Warn(ctx, "Kline stream message unreadable", "error", err)
			continue
		}
		if env.Data.EventType != "kline" || !env.Data.Kline.Final {
			continue
		}

		candle, err := env.Data.Kline.toCandle()
		if err != nil {
			logger.Warn(ctx, "Kline stream bar unparseable",
				"symbol", env.Data.Symbol, "error", err)
			continue
		}
		s.cache.add(env.Data.Symbol, candle)
	}
}

func (k wsKline) toCandle() (types.Candle, error) {
	c := types.Candle{
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		CloseTime: time.UnixMilli(k.CloseTime).UTC(),
		Trades:    k.Trades,
	}
	fields := []struct {
		dst *float64
		src string
	}{
		{&c.Open, k.Open}, {&c.High, k.High}, {&c.Low, k.Low}, {&c.Close, k.Close},
		{&c.Volume, k.Volume}, {&c.QuoteVolume, k.QuoteVolume},
		{&c.TakerBuyBaseVol, k.TakerBuyBaseVol}, {&c.TakerBuyQuoteVol, k.TakerBuyQuoteVol},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.src, 64)
		if err != nil {
			return types.Candle{}, err
		}
		*f.dst = v
	}
	return c, nil
}
