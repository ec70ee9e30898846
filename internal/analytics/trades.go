package analytics

import (
	"math"

	"github.com/isinthesky/envelope-backtest/internal/types"
)

// TradeCount partitions closed trades by the sign of their realized return.
type TradeCount struct {
	Total     int
	Wins      int
	Losses    int
	Breakeven int
}

// ProfitLoss holds the average realized returns of winners and losers, in
// percent, and their magnitude ratio.
type ProfitLoss struct {
	AvgWin          float64
	AvgLoss         float64
	AvgWinLossRatio float64
}

// HoldingPeriod summarizes how long closed trades were held, in days.
type HoldingPeriod struct {
	AvgDays float64
	MaxDays int
	MinDays int
}

// Streaks tracks the longest consecutive winning and losing runs, scanning
// trades in chronological order. CurrentStreak is positive for an ongoing
// winning run and negative for a losing one.
type Streaks struct {
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	CurrentStreak        int
}

// closedTrades filters to trades with populated exit fields, preserving
// order.
func closedTrades(trades []types.Trade) []types.Trade {
	var closed []types.Trade

	for _, trade := range trades {
		if trade.Closed() {
			closed = append(closed, trade)
		}
	}

	return closed
}

// CountTrades tallies closed trades by outcome.
func CountTrades(trades []types.Trade) TradeCount {
	closed := closedTrades(trades)

	count := TradeCount{Total: len(closed)}

	for _, trade := range closed {
		switch {
		case trade.Won():
			count.Wins++
		case trade.Lost():
			count.Losses++
		default:
			count.Breakeven++
		}
	}

	return count
}

// WinRate is the percentage of closed trades with a positive realized
// return; 0 with no closed trades.
func WinRate(trades []types.Trade) float64 {
	closed := closedTrades(trades)
	if len(closed) == 0 {
		return 0
	}

	wins := 0

	for _, trade := range closed {
		if trade.Won() {
			wins++
		}
	}

	return float64(wins) / float64(len(closed)) * 100
}

// ProfitFactor is the ratio of gross winning returns to gross losing
// returns. With winners but no losers it is +Inf; with no closed trades
// it is 0.
func ProfitFactor(trades []types.Trade) float64 {
	closed := closedTrades(trades)
	if len(closed) == 0 {
		return 0
	}

	totalProfit := 0.0
	totalLoss := 0.0

	for _, trade := range closed {
		rate := trade.ProfitRate.Unwrap()
		if rate > 0 {
			totalProfit += rate
		} else if rate < 0 {
			totalLoss += rate
		}
	}

	totalLoss = math.Abs(totalLoss)

	if totalLoss == 0 {
		if totalProfit > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return totalProfit / totalLoss
}

// AvgProfitLoss computes the average winning and losing returns and their
// ratio.
func AvgProfitLoss(trades []types.Trade) ProfitLoss {
	closed := closedTrades(trades)

	var wins, losses []float64

	for _, trade := range closed {
		rate := trade.ProfitRate.Unwrap()
		if rate > 0 {
			wins = append(wins, rate)
		} else if rate < 0 {
			losses = append(losses, rate)
		}
	}

	result := ProfitLoss{}

	if len(wins) > 0 {
		result.AvgWin = mean(wins)
	}

	if len(losses) > 0 {
		result.AvgLoss = mean(losses)
	}

	if result.AvgLoss != 0 {
		result.AvgWinLossRatio = math.Abs(result.AvgWin / result.AvgLoss)
	}

	return result
}

// AvgHoldingPeriod summarizes holding-period lengths across closed trades.
func AvgHoldingPeriod(trades []types.Trade) HoldingPeriod {
	closed := closedTrades(trades)
	if len(closed) == 0 {
		return HoldingPeriod{}
	}

	total := 0
	maxDays := closed[0].HoldingDays.Unwrap()
	minDays := maxDays

	for _, trade := range closed {
		days := trade.HoldingDays.Unwrap()
		total += days

		if days > maxDays {
			maxDays = days
		}

		if days < minDays {
			minDays = days
		}
	}

	return HoldingPeriod{
		AvgDays: float64(total) / float64(len(closed)),
		MaxDays: maxDays,
		MinDays: minDays,
	}
}

// ConsecutiveWinsLosses scans closed trades in order, resetting one counter
// whenever the other increments. Breakeven trades touch neither streak.
func ConsecutiveWinsLosses(trades []types.Trade) Streaks {
	closed := closedTrades(trades)

	var streaks Streaks

	currentWins := 0
	currentLosses := 0

	for _, trade := range closed {
		switch {
		case trade.Won():
			currentWins++
			currentLosses = 0

			if currentWins > streaks.MaxConsecutiveWins {
				streaks.MaxConsecutiveWins = currentWins
			}
		case trade.Lost():
			currentLosses++
			currentWins = 0

			if currentLosses > streaks.MaxConsecutiveLosses {
				streaks.MaxConsecutiveLosses = currentLosses
			}
		}
	}

	if currentWins > 0 {
		streaks.CurrentStreak = currentWins
	} else {
		streaks.CurrentStreak = -currentLosses
	}

	return streaks
}
