// Package binance fetches OHLCV klines from the Binance spot API, over REST
// for history and optionally over a websocket stream for freshly closed bars.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crypto-signal-bot/internal/interfaces"
	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/types"
)

const (
	defaultBaseURL = "https://api.binance.com"
	defaultWSURL   = "wss://stream.binance.com:9443"

	// Binance caps a single klines request at 1000 rows.
	maxPageLimit = 1000
)

type Params struct {
	BaseURL       string
	WSURL         string
	Interval      string
	DataSource    string // LIVE or STATIC
	StreamEnabled bool
	CacheSize     int
}

// Client is the candle source backed by the Binance spot API. In STATIC mode
// it serves synthetic candles so the bot can run without network access.
type Client struct {
	p          Params
	httpClient *http.Client
	cache      *candleCache
	stream     *stream
}

var _ interfaces.CandleSource = (*Client)(nil)

func New(p Params) *Client {
	if p.BaseURL == "" {
		p.BaseURL = defaultBaseURL
	}
	if p.WSURL == "" {
		p.WSURL = defaultWSURL
	}
	if p.Interval == "" {
		p.Interval = "1m"
	}
	if p.CacheSize == 0 {
		p.CacheSize = 2000
	}
	return &Client{
		p:          p,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      newCandleCache(),
	}
}

// RecentCandles returns the most recent closed candles for the symbol,
// oldest first. When the live stream is running, closed bars newer than the
// REST response are merged in, deduplicated by open time.
func (c *Client) RecentCandles(ctx context.Context, symbol string, limit int) (types.Series, error) {
	if c.p.DataSource == "STATIC" {
		return c.staticCandles(symbol, limit), nil
	}

	series, err := c.fetchKlines(ctx, symbol, limit, nil, nil)
	if err != nil {
		return nil, err
	}
	if c.stream != nil {
		series = mergeByOpenTime(series, c.cache.recent(symbol, limit))
		if len(series) > limit {
			series = series[len(series)-limit:]
		}
	}
	return series, nil
}

// RangeCandles fetches all candles in [start, end), paginating in pages of
// 1000 bars. The next page starts one millisecond after the last open time
// to avoid overlap.
func (c *Client) RangeCandles(ctx context.Context, symbol string, start, end time.Time) (types.Series, error) {
	if c.p.DataSource == "STATIC" {
		return c.staticCandles(symbol, 500), nil
	}

	var all types.Series
	cursor := start
	for cursor.Before(end) {
		s, e := cursor, end
		page, err := c.fetchKlines(ctx, symbol, maxPageLimit, &s, &e)
		if err != nil {
			if len(all) > 0 && isEmptyResult(err) {
				break
			}
			return nil, err
		}
		all = append(all, page...)
		cursor = page[len(page)-1].OpenTime.Add(time.Millisecond)
		if len(page) < maxPageLimit {
			break
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("binance: no klines returned for %s in range", symbol)
	}
	return all, nil
}

func (c *Client) fetchKlines(ctx context.Context, symbol string, limit int, start, end *time.Time) (types.Series, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", c.p.Interval)
	q.Set("limit", strconv.Itoa(limit))
	if start != nil {
		q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if end != nil {
		q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}

	u := c.p.BaseURL + "/api/v3/klines?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: fetch klines for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("binance: klines for %s: status %d: %s", symbol, resp.StatusCode, body)
	}

	var raw [][]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("binance: decode klines for %s: %w", symbol, err)
	}
	if len(raw) == 0 {
		return nil, errEmptyResult(symbol)
	}

	series, err := parseKlines(raw)
	if err != nil {
		return nil, fmt.Errorf("binance: parse klines for %s: %w", symbol, err)
	}
	logger.Debug(ctx, "Fetched klines", "symbol", symbol, "count", len(series))
	return series, nil
}

// parseKlines converts the raw Binance kline rows into candles. Each row is
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades,
// takerBuyBase, takerBuyQuote, ignore]; prices and volumes arrive as strings.
func parseKlines(raw [][]any) (types.Series, error) {
	series := make(types.Series, 0, len(raw))
	for i, row := range raw {
		if len(row) < 11 {
			return nil, fmt.Errorf("kline row %d has %d fields, want 11+", i, len(row))
		}
		var (
			c   types.Candle
			err error
		)
		openMS, err := asInt64(row[0])
		if err != nil {
			return nil, fmt.Errorf("kline row %d open_time: %w", i, err)
		}
		closeMS, err := asInt64(row[6])
		if err != nil {
			return nil, fmt.Errorf("kline row %d close_time: %w", i, err)
		}
		c.OpenTime = time.UnixMilli(openMS).UTC()
		c.CloseTime = time.UnixMilli(closeMS).UTC()

		floats := []struct {
			dst *float64
			idx int
		}{
			{&c.Open, 1}, {&c.High, 2}, {&c.Low, 3}, {&c.Close, 4},
			{&c.Volume, 5}, {&c.QuoteVolume, 7},
			{&c.TakerBuyBaseVol, 9}, {&c.TakerBuyQuoteVol, 10},
		}
		for _, f := range floats {
			if *f.dst, err = asFloat(row[f.idx]); err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, f.idx, err)
			}
		}
		if c.Trades, err = asInt64(row[8]); err != nil {
			return nil, fmt.Errorf("kline row %d trades: %w", i, err)
		}
		series = append(series, c)
	}
	return series, nil
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseFloat(x, 64)
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

func asInt64(v any) (int64, error) {
	switch x := v.(type) {
	case float64:
		return int64(x), nil
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

// mergeByOpenTime combines a REST series with streamed bars, keeping the
// latest entry for a duplicated open time and overall ascending order.
func mergeByOpenTime(base, extra types.Series) types.Series {
	if len(extra) == 0 {
		return base
	}
	out := make(types.Series, len(base), len(base)+len(extra))
	copy(out, base)
	for _, c := range extra {
		if len(out) > 0 {
			last := out[len(out)-1]
			if !c.OpenTime.After(last.OpenTime) {
				if c.OpenTime.Equal(last.OpenTime) {
					out[len(out)-1] = c
				}
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// staticCandles generates a deterministic-shape random walk for dry runs.
func (c *Client) staticCandles(symbol string, n int) types.Series {
	_ = symbol
	series := make(types.Series, 0, n)
	base := 1000.0
	now := time.Now().UTC().Truncate(time.Minute)

	for i := n; i > 0; i-- {
		cl := base + float64(i) + (rand.Float64()-0.5)*5
		op := cl - 0.5
		h := cl + rand.Float64()*3
		// Keep low <= open <= high even when the random wick is shallow.
		l := math.Min(cl-rand.Float64()*3, op)
		open := now.Add(-time.Duration(n-i+1) * time.Minute)
		series = append(series, types.Candle{
			OpenTime:  open,
			CloseTime: open.Add(time.Minute - time.Millisecond),
			Open:      op,
			High:      h,
			Low:       l,
			Close:     cl,
			Volume:    rand.Float64() * 1000,
		})
	}
	return series
}

type emptyResultError struct{ symbol string }

func (e emptyResultError) Error() string {
	return fmt.Sprintf("binance: no klines data returned for %s", e.symbol)
}

func errEmptyResult(symbol string) error { return emptyResultError{symbol: symbol} }

func isEmptyResult(err error) bool {
	_, ok := err.(emptyResultError)
	return ok
}
