package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ExitReason is the closed set of causes that can end a trade.
type ExitReason string

const (
	ExitReasonSignal       ExitReason = "signal"
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonTrailingStop ExitReason = "trailing_stop"
)

// Trade represents one round trip, or one open leg while unclosed.
//
// Exit fields are all-or-nothing: while the trade is open every Option is
// None, and closing populates all of them in one step. Commission holds the
// buy-side fee while open and the buy+sell sum once closed; Tax is sell-side
// only.
type Trade struct {
	ID          string
	Symbol      string
	Side        Side
	EntryDate   time.Time
	EntryPrice  decimal.Decimal
	ExitDate    optional.Option[time.Time]
	ExitPrice   optional.Option[decimal.Decimal]
	Quantity    int64
	Commission  decimal.Decimal
	Tax         decimal.Decimal
	Profit      optional.Option[decimal.Decimal]
	ProfitRate  optional.Option[float64]
	HoldingDays optional.Option[int]
	ExitReason  optional.Option[ExitReason]
}

// Closed reports whether the trade has been fully exited.
func (t *Trade) Closed() bool {
	return t.ExitDate.IsSome()
}

// Won reports whether a closed trade realized a positive return. Open trades
// and breakeven trades report false.
func (t *Trade) Won() bool {
	return t.ProfitRate.IsSome() && t.ProfitRate.Unwrap() > 0
}

// Lost reports whether a closed trade realized a negative return.
func (t *Trade) Lost() bool {
	return t.ProfitRate.IsSome() && t.ProfitRate.Unwrap() < 0
}

// Position is the open holding for one symbol. At most one exists per symbol
// at any time; partial closes are not modeled.
type Position struct {
	Symbol     string
	Quantity   int64
	EntryPrice decimal.Decimal
	EntryDate  time.Time
	TradeID    string
	// HighestPrice is the highest close seen since entry. It never
	// decreases and is used only for trailing-stop evaluation.
	HighestPrice decimal.Decimal
}

// UpdateHighestPrice raises the high-water mark if price exceeds it.
func (p *Position) UpdateHighestPrice(price decimal.Decimal) {
	if price.GreaterThan(p.HighestPrice) {
		p.HighestPrice = price
	}
}

// UnrealizedProfit is (current - entry) * quantity.
func (p *Position) UnrealizedProfit(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Sub(p.EntryPrice).Mul(decimal.NewFromInt(p.Quantity))
}

// UnrealizedReturn is the fractional return relative to the entry price,
// e.g. -0.03 for a 3% loss. Returns 0 when the entry price is 0.
func (p *Position) UnrealizedReturn(currentPrice decimal.Decimal) float64 {
	if p.EntryPrice.IsZero() {
		return 0
	}

	return currentPrice.Sub(p.EntryPrice).Div(p.EntryPrice).InexactFloat64()
}

// Value is the mark-to-market value at the given price.
func (p *Position) Value(currentPrice decimal.Decimal) decimal.Decimal {
	return currentPrice.Mul(decimal.NewFromInt(p.Quantity))
}
