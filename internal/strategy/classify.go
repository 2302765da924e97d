// Package strategy classifies the most recent closed candle of a series
// into a trading opportunity using a configurable indicator rule set.
package strategy

import (
	"context"
	"fmt"

	"crypto-signal-bot/internal/logger"
	"crypto-signal-bot/internal/types"
)

// Variant selects which rule set the classifier applies.
type Variant string

const (
	VariantRSI       Variant = "rsi"
	VariantBollinger Variant = "bollinger"
	VariantVolume    Variant = "volume"
	VariantHybrid    Variant = "hybrid"
	VariantEnhanced  Variant = "enhanced"
)

// Classifier reduces an indicator frame to a single Signal for the latest
// bar. It is stateless: the same series always yields the same Signal.
type Classifier struct {
	variant Variant
	params  Params
}

// NewClassifier creates a classifier for the given variant name.
func NewClassifier(variant string, p Params) (*Classifier, error) {
	v := Variant(variant)
	switch v {
	case VariantRSI, VariantBollinger, VariantVolume, VariantHybrid, VariantEnhanced:
	default:
		return nil, fmt.Errorf("unknown strategy variant %q", variant)
	}
	return &Classifier{variant: v, params: p}, nil
}

// Variant returns the configured rule set name.
func (c *Classifier) Variant() Variant { return c.variant }

// row holds the scalar indicator values of the latest bar. Only the final
// row is ever classified, so there is no need to evaluate rules across the
// whole frame.
type row struct {
	close, volume          float64
	prevClose, prevVolume  float64
	rsi                    float64
	bbUpper, bbLower       float64
	maFast, maSlow         float64
	emaFast, emaSlow       float64
	macd, macdSignal, vwap float64
}

// Classify builds the indicator frame over the series and applies the
// configured rule set to the last row. Comparisons against still-undefined
// (NaN) indicator values are false, so a column that mean-fill could not
// populate can never produce an opportunity.
func (c *Classifier) Classify(ctx context.Context, symbol string, series types.Series) (types.Signal, error) {
	frame, err := BuildFrame(series, c.params)
	if err != nil {
		return types.Signal{}, err
	}
	return c.ClassifyFrame(ctx, symbol, frame)
}

// ClassifyFrame applies the rule set to an already-built frame.
func (c *Classifier) ClassifyFrame(ctx context.Context, symbol string, frame *Frame) (types.Signal, error) {
	n := frame.Len()
	for _, col := range frame.columns() {
		if len(col) != n {
			return types.Signal{}, &ClassificationError{
				Symbol: symbol,
				Err:    fmt.Errorf("indicator column length %d does not match series length %d", len(col), n),
			}
		}
	}

	last := frame.Series[n-1]
	r := row{
		close:      last.Close,
		volume:     last.Volume,
		prevClose:  frame.PrevClose[n-1],
		prevVolume: frame.PrevVolume[n-1],
		rsi:        frame.RSI[n-1],
		bbUpper:    frame.BBUpper[n-1],
		bbLower:    frame.BBLower[n-1],
		maFast:     frame.MAFast[n-1],
		maSlow:     frame.MASlow[n-1],
		emaFast:    frame.EMAFast[n-1],
		emaSlow:    frame.EMASlow[n-1],
		macd:       frame.MACD[n-1],
		macdSignal: frame.MACDSignal[n-1],
		vwap:       frame.VWAP[n-1],
	}

	logger.Debug(ctx, "Classifying latest bar",
		"symbol", symbol,
		"variant", string(c.variant),
		"close", r.close,
		"rsi", r.rsi,
		"bb_lower", r.bbLower,
		"bb_upper", r.bbUpper,
		"volume", r.volume,
		"prev_volume", r.prevVolume,
	)

	var opp types.Opportunity
	switch c.variant {
	case VariantRSI:
		opp = classifyRSI(r)
	case VariantBollinger:
		opp = classifyBollinger(r)
	case VariantVolume:
		opp = classifyVolume(r)
	case VariantHybrid:
		opp = classifyHybrid(r)
	case VariantEnhanced:
		opp = classifyEnhanced(r)
	default:
		return types.Signal{}, &ClassificationError{
			Symbol: symbol,
			Err:    fmt.Errorf("unknown strategy variant %q", c.variant),
		}
	}

	return types.Signal{
		Symbol:      symbol,
		CloseTime:   last.CloseTime,
		ClosePrice:  last.Close,
		Opportunity: opp,
	}, nil
}

func classifyRSI(r row) types.Opportunity {
	switch {
	case r.rsi < 30:
		return types.OpportunityBuy
	case r.rsi > 70:
		return types.OpportunitySell
	}
	return types.OpportunityNone
}

func classifyBollinger(r row) types.Opportunity {
	switch {
	case r.close <= r.bbLower:
		return types.OpportunityBuy
	case r.close >= r.bbUpper:
		return types.OpportunitySell
	}
	return types.OpportunityNone
}

func classifyVolume(r row) types.Opportunity {
	switch {
	case r.close > r.prevClose && r.volume > r.prevVolume:
		return types.OpportunityBuy
	case r.close < r.prevClose && r.volume > r.prevVolume:
		return types.OpportunitySell
	}
	return types.OpportunityNone
}

func classifyHybrid(r row) types.Opportunity {
	switch {
	case r.rsi < 30 && r.close <= r.bbLower && r.volume > r.prevVolume:
		return types.OpportunityBuy
	case r.rsi > 70 && r.close >= r.bbUpper && r.volume > r.prevVolume:
		return types.OpportunitySell
	}
	return types.OpportunityNone
}

// classifyEnhanced keeps behavioral parity with the source system: the Sell
// side really is "RSI>70 OR (everything else bearish)" while the Buy side
// requires every condition. Do not "fix" the asymmetry.
func classifyEnhanced(r row) types.Opportunity {
	buy := r.rsi < 40 &&
		r.close <= r.bbLower &&
		r.maFast > r.maSlow &&
		r.emaFast > r.emaSlow &&
		r.macd > r.macdSignal &&
		r.close > r.vwap
	if buy {
		return types.OpportunityBuy
	}
	sell := r.rsi > 70 ||
		(r.close >= r.bbUpper &&
			r.maFast < r.maSlow &&
			r.emaFast < r.emaSlow &&
			r.macd < r.macdSignal &&
			r.close < r.vwap)
	if sell {
		return types.OpportunitySell
	}
	return types.OpportunityNone
}
