package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySnapshot is one end-of-day row of the equity curve. Exactly one is
// appended per simulated day, in date order, and never mutated afterwards.
type DailySnapshot struct {
	Date          time.Time       `yaml:"date"`
	Equity        decimal.Decimal `yaml:"equity"`
	Cash          decimal.Decimal `yaml:"cash"`
	PositionValue decimal.Decimal `yaml:"position_value"`
	// DailyReturn is the day-over-day equity change in percent; 0 on the
	// first day.
	DailyReturn float64 `yaml:"daily_return"`
	// CumulativeReturn is the change from initial capital in percent.
	CumulativeReturn float64 `yaml:"cumulative_return"`
	// Drawdown is the decline from the running equity peak in percent,
	// always <= 0.
	Drawdown float64 `yaml:"drawdown"`
}

// DailyReturns computes the percent day-over-day return series from a
// snapshot sequence, one entry per day after the first.
func DailyReturns(snapshots []DailySnapshot) []float64 {
	if len(snapshots) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(snapshots)-1)

	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].Equity
		if prev.IsZero() {
			returns = append(returns, 0)
			continue
		}

		change := snapshots[i].Equity.Sub(prev).Div(prev)
		returns = append(returns, change.InexactFloat64()*100)
	}

	return returns
}
