package notify

import (
	"fmt"
	"strings"
	"time"

	"crypto-signal-bot/internal/types"
)

// Renderer turns trade events into the human-readable alert text. Times are
// converted to the configured presentation zone; the engine itself only
// deals in UTC.
type Renderer struct {
	Location *time.Location
}

// Render produces the alert body for a trade event.
func (r *Renderer) Render(event types.TradeEvent) string {
	var b strings.Builder
	switch event.Kind {
	case types.EventBuyOpened:
		fmt.Fprintf(&b, "🚀 Buy Opportunity for %s!\n", event.Symbol)
		fmt.Fprintf(&b, "💰 Price: %s\n", formatPrice(event.EntryPrice))
		fmt.Fprintf(&b, "⏰ Time: %s\n", r.formatTime(event.EntryTime))
	case types.EventSoldClosed:
		fmt.Fprintf(&b, "🚀 Sell Opportunity for %s!\n", event.Symbol)
		fmt.Fprintf(&b, "💰 Buy Price: %s\n", formatPrice(event.EntryPrice))
		fmt.Fprintf(&b, "💰 Sell Price: %s\n", formatPrice(event.ExitPrice))
		fmt.Fprintf(&b, "💰 Profit: %s\n", formatPrice(event.Profit))
		fmt.Fprintf(&b, "⏰ Buy Time: %s\n", r.formatTime(event.EntryTime))
		fmt.Fprintf(&b, "⏰ Sell Time: %s\n", r.formatTime(event.ExitTime))
	default:
		fmt.Fprintf(&b, "%s event for %s\n", event.Kind, event.Symbol)
	}
	b.WriteString("🔔 Stay tuned for more opportunities!")
	return b.String()
}

// Title produces a short alert headline.
func (r *Renderer) Title(event types.TradeEvent) string {
	switch event.Kind {
	case types.EventBuyOpened:
		return "Buy Opportunity: " + event.Symbol
	case types.EventSoldClosed:
		return "Sell Opportunity: " + event.Symbol
	}
	return event.Kind + ": " + event.Symbol
}

// formatTime renders a timestamp in the presentation zone. Exchange close
// times land on the last millisecond of the interval (…:59.999), which reads
// awkwardly in an alert, so those are rounded up to the minute boundary.
func (r *Renderer) formatTime(t time.Time) string {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if local.Second() == 59 {
		local = local.Truncate(time.Minute).Add(time.Minute)
	}
	return local.Format("2006-01-02 15:04:05")
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.8g", v)
}
