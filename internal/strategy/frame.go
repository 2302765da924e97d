package strategy

import (
	"fmt"
	"math"

	"crypto-signal-bot/internal/ta"
	"crypto-signal-bot/internal/types"
)

// Params holds the indicator lookbacks used to build a frame.
type Params struct {
	RSIPeriod  int
	BBWindow   int
	BBStdDev   float64
	MAFast     int
	MASlow     int
	EMAFast    int
	EMASlow    int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams mirrors the reference configuration: a short RSI for
// frequent signals and 20-bar Bollinger Bands at 2 standard deviations.
func DefaultParams() Params {
	return Params{
		RSIPeriod:  7,
		BBWindow:   20,
		BBStdDev:   2.0,
		MAFast:     10,
		MASlow:     50,
		EMAFast:    9,
		EMASlow:    21,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// Frame is a candle series augmented with indicator columns, aligned
// index-for-index with the series. It is built per evaluation and discarded
// after producing the latest-bar signal; the input series is never mutated.
type Frame struct {
	Series types.Series

	RSI        []float64
	BBUpper    []float64
	BBMiddle   []float64
	BBLower    []float64
	MAFast     []float64
	MASlow     []float64
	EMAFast    []float64
	EMASlow    []float64
	MACD       []float64
	MACDSignal []float64
	VWAP       []float64
	PrevVolume []float64
	PrevClose  []float64
}

// BuildFrame computes all indicator columns over the series and then
// mean-fills the warm-up gaps: NaN entries in each numeric column are
// replaced with that column's mean over its defined values. Timestamps are
// untouched. A series shorter than two bars cannot supply the previous-bar
// volume comparison and is rejected.
func BuildFrame(series types.Series, p Params) (*Frame, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 bars, have %d", ErrInsufficientData, len(series))
	}

	closes := series.Closes()
	f := &Frame{Series: series}

	f.RSI = ta.RSI(closes, p.RSIPeriod)
	f.BBUpper, f.BBMiddle, f.BBLower = ta.Bollinger(closes, p.BBWindow, p.BBStdDev)
	f.MAFast = ta.SMA(closes, p.MAFast)
	f.MASlow = ta.SMA(closes, p.MASlow)
	f.EMAFast = ta.EMA(closes, p.EMAFast)
	f.EMASlow = ta.EMA(closes, p.EMASlow)
	f.MACD, f.MACDSignal = ta.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	f.VWAP = ta.VWAP(series.Highs(), series.Lows(), closes, series.Volumes())
	f.PrevVolume = shift(series.Volumes())
	f.PrevClose = shift(closes)

	for _, col := range f.columns() {
		ta.FillMean(col)
	}
	return f, nil
}

func (f *Frame) columns() [][]float64 {
	return [][]float64{
		f.RSI,
		f.BBUpper, f.BBMiddle, f.BBLower,
		f.MAFast, f.MASlow,
		f.EMAFast, f.EMASlow,
		f.MACD, f.MACDSignal,
		f.VWAP,
		f.PrevVolume, f.PrevClose,
	}
}

// Len returns the number of rows in the frame.
func (f *Frame) Len() int { return len(f.Series) }

// shift returns values offset by one bar: out[i] = values[i-1], with the
// first entry NaN.
func shift(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i-1]
	}
	return out
}
