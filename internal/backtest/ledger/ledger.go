// Package ledger owns the open-position-per-symbol state and decides when a
// risk exit is warranted. Trigger checks on a symbol with no open position
// return false, so the simulator can call them unconditionally each day.
package ledger

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/isinthesky/envelope-backtest/internal/types"
)

// Ledger tracks zero-or-one open position per symbol. One Ledger belongs to
// exactly one simulation run; it is not safe for concurrent use and does not
// need to be.
type Ledger struct {
	positions map[string]*types.Position
}

func New() *Ledger {
	return &Ledger{
		positions: make(map[string]*types.Position),
	}
}

// Open creates the position for a symbol. The high-water mark starts at the
// entry price.
func (l *Ledger) Open(symbol string, quantity int64, entryPrice decimal.Decimal, entryDate time.Time, tradeID string) {
	l.positions[symbol] = &types.Position{
		Symbol:       symbol,
		Quantity:     quantity,
		EntryPrice:   entryPrice,
		EntryDate:    entryDate,
		TradeID:      tradeID,
		HighestPrice: entryPrice,
	}
}

// Close removes and returns the position for a symbol. Repeated calls on an
// absent symbol return None.
func (l *Ledger) Close(symbol string) optional.Option[types.Position] {
	position, ok := l.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	delete(l.positions, symbol)

	return optional.Some(*position)
}

func (l *Ledger) Has(symbol string) bool {
	_, ok := l.positions[symbol]

	return ok
}

func (l *Ledger) Get(symbol string) optional.Option[types.Position] {
	position, ok := l.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(*position)
}

// Count returns the number of open positions.
func (l *Ledger) Count() int {
	return len(l.positions)
}

// ClearAll drops every open position.
func (l *Ledger) ClearAll() {
	l.positions = make(map[string]*types.Position)
}

// MarkToMarket raises each position's high-water mark with the day's price
// and returns the aggregate mark-to-market value across all open positions.
// Symbols without a quote are valued at their entry price.
func (l *Ledger) MarkToMarket(prices map[string]decimal.Decimal) decimal.Decimal {
	totalValue := decimal.Zero

	for symbol, position := range l.positions {
		currentPrice, ok := prices[symbol]
		if !ok {
			currentPrice = position.EntryPrice
		}

		position.UpdateHighestPrice(currentPrice)
		totalValue = totalValue.Add(position.Value(currentPrice))
	}

	return totalValue
}

// CheckStopLoss reports whether the unrealized return has fallen to the
// stop-loss ratio or below. The ratio is negative, e.g. -0.03 for -3%.
func (l *Ledger) CheckStopLoss(symbol string, currentPrice decimal.Decimal, ratio float64) bool {
	position, ok := l.positions[symbol]
	if !ok {
		return false
	}

	return position.UnrealizedReturn(currentPrice) <= ratio
}

// CheckTakeProfit reports whether the unrealized return has reached the
// take-profit ratio. The ratio is positive, e.g. 0.05 for +5%.
func (l *Ledger) CheckTakeProfit(symbol string, currentPrice decimal.Decimal, ratio float64) bool {
	position, ok := l.positions[symbol]
	if !ok {
		return false
	}

	return position.UnrealizedReturn(currentPrice) >= ratio
}

// CheckTrailingStop reports whether the price has pulled back from the
// high-water mark by the trailing ratio or more. The ratio is positive,
// e.g. 0.02 means a 2% retreat from the peak triggers.
func (l *Ledger) CheckTrailingStop(symbol string, currentPrice decimal.Decimal, ratio float64) bool {
	position, ok := l.positions[symbol]
	if !ok {
		return false
	}

	if position.HighestPrice.IsZero() {
		return false
	}

	declineRate := currentPrice.Sub(position.HighestPrice).Div(position.HighestPrice).InexactFloat64()

	return declineRate <= -ratio
}
