package binance

import (
	"sync"

	"crypto-signal-bot/internal/types"
)

// candleCache holds per-symbol ring buffers of closed candles received from
// the websocket stream.
type candleCache struct {
	mu      sync.RWMutex
	buffers map[string]*candleBuffer
}

type candleBuffer struct {
	candles types.Series
	maxSize int
}

func newCandleCache() *candleCache {
	return &candleCache{buffers: make(map[string]*candleBuffer)}
}

func (cc *candleCache) initBuffer(symbol string, maxSize int) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.buffers[symbol] = &candleBuffer{
		candles: make(types.Series, 0, maxSize),
		maxSize: maxSize,
	}
}

// add appends a closed candle. A bar with the same open time as the last
// entry replaces it, since the stream may re-deliver a final bar.
func (cc *candleCache) add(symbol string, candle types.Candle) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	buf, ok := cc.buffers[symbol]
	if !ok {
		return
	}
	if n := len(buf.candles); n > 0 && buf.candles[n-1].OpenTime.Equal(candle.OpenTime) {
		buf.candles[n-1] = candle
		return
	}
	buf.candles = append(buf.candles, candle)
	if len(buf.candles) > buf.maxSize {
		buf.candles = buf.candles[1:]
	}
}

// recent returns up to n of the newest candles for the symbol, oldest first.
func (cc *candleCache) recent(symbol string, n int) types.Series {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	buf, ok := cc.buffers[symbol]
	if !ok || len(buf.candles) == 0 {
		return nil
	}
	candles := buf.candles
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	out := make(types.Series, len(candles))
	copy(out, candles)
	return out
}
