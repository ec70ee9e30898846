// Package analytics computes return, risk and trade-quality statistics from
// a finished run's equity curve and trade list. Every function is pure and
// none mutate their inputs; zero-denominator cases return defined sentinels
// instead of erroring.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultRiskFreeRate is the annual risk-free rate in percent used by the
// Sharpe and Sortino ratios.
const DefaultRiskFreeRate = 3.0

// tradingDaysPerYear is the annualization base for daily-return statistics.
const tradingDaysPerYear = 252

// MDDInfo describes the maximum drawdown of an equity series.
type MDDInfo struct {
	// MDD is the deepest decline from a prior peak, in percent (<= 0).
	MDD float64
	// PeakIndex is the index of the peak preceding the trough.
	PeakIndex int
	// ValleyIndex is the index of the trough.
	ValleyIndex int
	// RecoveryDays is the series length remaining after the trough, or 0
	// when the drawdown magnitude is within 0.01%.
	RecoveryDays int
}

// TotalReturn is the percent change from initial to final capital.
func TotalReturn(initial, final decimal.Decimal) float64 {
	if initial.IsZero() {
		return 0
	}

	return final.Sub(initial).Div(initial).InexactFloat64() * 100
}

// AnnualizedReturn converts the total growth over [start, end] into a
// percent annual rate on a 365-day basis.
func AnnualizedReturn(initial, final decimal.Decimal, start, end time.Time) float64 {
	totalDays := int(end.Sub(start).Hours() / 24)

	if totalDays == 0 || initial.IsZero() {
		return 0
	}

	growth := final.Div(initial).InexactFloat64()

	return (math.Pow(growth, 365/float64(totalDays)) - 1) * 100
}

// CAGR is the compound annual growth rate in percent over the given number
// of years.
func CAGR(initial, final decimal.Decimal, years float64) float64 {
	if years <= 0 || initial.IsZero() {
		return 0
	}

	growth := final.Div(initial).InexactFloat64()

	return (math.Pow(growth, 1/years) - 1) * 100
}

// DailyReturns computes the fractional day-over-day change series of an
// equity curve, one entry per day after the first.
func DailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}

		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}

	return returns
}

// MaxDrawdown computes the maximum drawdown of an equity series along with
// the peak/trough locations and the remaining recovery window.
func MaxDrawdown(equity []float64) MDDInfo {
	if len(equity) == 0 {
		return MDDInfo{MDD: 0, PeakIndex: 0, ValleyIndex: 0, RecoveryDays: 0}
	}

	mdd := 0.0
	valleyIndex := 0
	runningMax := equity[0]

	for i, value := range equity {
		if value > runningMax {
			runningMax = value
		}

		drawdown := 0.0
		if runningMax > 0 {
			drawdown = (value - runningMax) / runningMax * 100
		}

		if drawdown < mdd {
			mdd = drawdown
			valleyIndex = i
		}
	}

	peakIndex := 0
	peakValue := equity[0]

	for i := 0; i <= valleyIndex; i++ {
		if equity[i] > peakValue {
			peakValue = equity[i]
			peakIndex = i
		}
	}

	recoveryDays := 0
	if mdd < -0.01 {
		recoveryDays = len(equity) - valleyIndex
	}

	return MDDInfo{
		MDD:          mdd,
		PeakIndex:    peakIndex,
		ValleyIndex:  valleyIndex,
		RecoveryDays: recoveryDays,
	}
}

// Volatility annualizes the standard deviation of fractional daily returns,
// in percent.
func Volatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}

	return sampleStdDev(dailyReturns) * math.Sqrt(tradingDaysPerYear) * 100
}

// SharpeRatio relates the annualized excess return to total volatility.
// Both inputs are percentages.
func SharpeRatio(annualizedReturn, volatility, riskFreeRate float64) float64 {
	if volatility == 0 {
		return 0
	}

	return (annualizedReturn - riskFreeRate) / volatility
}

// SortinoRatio relates the annualized excess return to downside volatility,
// the annualized standard deviation of negative daily returns only. Returns
// 0 when there are no negative returns.
func SortinoRatio(dailyReturns []float64, annualizedReturn, riskFreeRate float64) float64 {
	var negatives []float64

	for _, r := range dailyReturns {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}

	if len(negatives) == 0 {
		return 0
	}

	downsideVolatility := sampleStdDev(negatives) * math.Sqrt(tradingDaysPerYear) * 100
	if downsideVolatility == 0 {
		return 0
	}

	return (annualizedReturn - riskFreeRate) / downsideVolatility
}

// CalmarRatio relates the annualized return to the maximum drawdown
// magnitude. Returns 0 when there is no drawdown.
func CalmarRatio(annualizedReturn, mdd float64) float64 {
	if mdd >= 0 {
		return 0
	}

	return annualizedReturn / math.Abs(mdd)
}

// VaR95 is the historical 95% value at risk: the 5th percentile of the
// fractional daily-return distribution, in percent.
func VaR95(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}

	return percentile(dailyReturns, 0.05) * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStdDev is the ddof=1 standard deviation; 0 for fewer than 2 values.
func sampleStdDev(values []float64) float64 {
	return math.Sqrt(sampleVariance(values))
}

func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)
	sum := 0.0

	for _, v := range values {
		diff := v - m
		sum += diff * diff
	}

	return sum / float64(len(values)-1)
}

// percentile computes the q-quantile (0..1) with linear interpolation
// between order statistics.
func percentile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	position := q * float64(len(sorted)-1)
	lower := int(math.Floor(position))
	upper := int(math.Ceil(position))

	if lower == upper {
		return sorted[lower]
	}

	weight := position - float64(lower)

	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
