// Package tracker owns the per-symbol position lifecycle: Idle until a Buy
// signal opens a position, Open until a qualifying Sell closes it.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"crypto-signal-bot/internal/types"
)

// ExitPolicy decides when a Sell signal is allowed to close an open position.
type ExitPolicy string

const (
	// ExitThreshold closes only when profit reaches entry price times the
	// configured profit ratio.
	ExitThreshold ExitPolicy = "threshold"
	// ExitAnyProfit closes on any positive profit, regardless of magnitude.
	ExitAnyProfit ExitPolicy = "any-profit"
)

// Position is the tracked state for one symbol while it is Open.
type Position struct {
	Symbol     string    `json:"symbol"`
	EntryPrice float64   `json:"entry_price"`
	EntryTime  time.Time `json:"entry_time"`
}

// Tracker consumes a stream of per-poll signals and emits trade events.
// A symbol has at most one open position at a time; a second Buy while Open
// is ignored, a Sell while Idle is ignored.
type Tracker struct {
	policy      ExitPolicy
	profitRatio float64

	mu        sync.Mutex
	positions map[string]Position
}

// New creates a tracker with the given exit policy. profitRatio is only
// consulted under the threshold policy.
func New(policy ExitPolicy, profitRatio float64) (*Tracker, error) {
	switch policy {
	case ExitThreshold, ExitAnyProfit:
	default:
		return nil, fmt.Errorf("unknown exit policy %q", policy)
	}
	return &Tracker{
		policy:      policy,
		profitRatio: profitRatio,
		positions:   make(map[string]Position),
	}, nil
}

// Apply feeds one signal through the state machine and returns the resulting
// trade event, or nil when no transition happened. Signals for a symbol must
// be applied in poll order; the caller serializes evaluations per symbol.
// A signal with an invalid opportunity kind is a programming error and
// panics rather than being silently ignored.
func (t *Tracker) Apply(sig types.Signal) *types.TradeEvent {
	if !sig.Opportunity.Valid() {
		panic(fmt.Sprintf("tracker: invalid opportunity %q for %s", sig.Opportunity, sig.Symbol))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	pos, open := t.positions[sig.Symbol]
	if !open {
		if sig.Opportunity != types.OpportunityBuy {
			return nil
		}
		t.positions[sig.Symbol] = Position{
			Symbol:     sig.Symbol,
			EntryPrice: sig.ClosePrice,
			EntryTime:  sig.CloseTime,
		}
		return &types.TradeEvent{
			Kind:       types.EventBuyOpened,
			Symbol:     sig.Symbol,
			EntryPrice: sig.ClosePrice,
			EntryTime:  sig.CloseTime,
		}
	}

	if sig.Opportunity != types.OpportunitySell {
		return nil
	}

	profit := sig.ClosePrice - pos.EntryPrice
	if !t.qualifies(pos.EntryPrice, sig.ClosePrice, profit) {
		return nil
	}

	delete(t.positions, sig.Symbol)
	return &types.TradeEvent{
		Kind:       types.EventSoldClosed,
		Symbol:     sig.Symbol,
		EntryPrice: pos.EntryPrice,
		EntryTime:  pos.EntryTime,
		ExitPrice:  sig.ClosePrice,
		ExitTime:   sig.CloseTime,
		Profit:     profit,
	}
}

func (t *Tracker) qualifies(entry, exit, profit float64) bool {
	switch t.policy {
	case ExitAnyProfit:
		return exit > entry
	default:
		return exit > entry && profit >= entry*t.profitRatio
	}
}

// Open reports whether the symbol currently has an open position.
func (t *Tracker) Open(symbol string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.positions[symbol]
	return ok
}

// Positions returns a snapshot of all open positions.
func (t *Tracker) Positions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, p)
	}
	return out
}
