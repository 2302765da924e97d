package types

import "time"

// Candle is one closed OHLCV bar for a (symbol, interval) pair.
// All timestamps are UTC.
type Candle struct {
	OpenTime         time.Time
	CloseTime        time.Time
	Open             float64
	High             float64
	Low              float64
	Close            float64
	Volume           float64
	QuoteVolume      float64
	Trades           int64
	TakerBuyBaseVol  float64
	TakerBuyQuoteVol float64
}

// Series is an ordered candle sequence, strictly increasing by OpenTime.
type Series []Candle

func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Opportunity is the classifier's verdict for the latest closed bar.
type Opportunity string

const (
	OpportunityBuy  Opportunity = "Buy"
	OpportunitySell Opportunity = "Sell"
	OpportunityNone Opportunity = "None"
)

func (o Opportunity) Valid() bool {
	return o == OpportunityBuy || o == OpportunitySell || o == OpportunityNone
}

// Signal is the classification of the most recent closed candle in a series.
type Signal struct {
	Symbol      string      `json:"symbol"`
	CloseTime   time.Time   `json:"close_time"`
	ClosePrice  float64     `json:"close_price"`
	Opportunity Opportunity `json:"opportunity"`
}

const (
	EventBuyOpened  = "BUY_OPENED"
	EventSoldClosed = "SOLD_CLOSED"
)

// TradeEvent reports a position transition for a symbol. Kind is either
// EventBuyOpened or EventSoldClosed; exit fields are set only on close.
type TradeEvent struct {
	Kind       string    `json:"kind"`
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
	ExitPrice  float64   `json:"exit_price,omitempty"`
	ExitTime   time.Time `json:"exit_time,omitempty"`
	Profit     float64   `json:"profit,omitempty"`
}

// StepResult summarizes one evaluation of one symbol.
type StepResult struct {
	Symbol string      `json:"symbol"`
	Signal Signal      `json:"signal"`
	Event  *TradeEvent `json:"event,omitempty"`
	Bars   int         `json:"bars"`
}
