package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) TestTotalReturn() {
	suite.InDelta(10.0, TotalReturn(decimal.NewFromInt(1_000_000), decimal.NewFromInt(1_100_000)), 1e-9)
	suite.InDelta(-25.0, TotalReturn(decimal.NewFromInt(100), decimal.NewFromInt(75)), 1e-9)
	suite.Zero(TotalReturn(decimal.Zero, decimal.NewFromInt(100)))
}

func (suite *MetricsTestSuite) TestAnnualizedReturnOneYear() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	got := AnnualizedReturn(decimal.NewFromInt(100), decimal.NewFromInt(121), start, end)
	suite.InDelta(21.0, got, 0.01)
}

func (suite *MetricsTestSuite) TestAnnualizedReturnZeroSpan() {
	now := time.Now()
	suite.Zero(AnnualizedReturn(decimal.NewFromInt(100), decimal.NewFromInt(121), now, now))
}

func (suite *MetricsTestSuite) TestCAGR() {
	// 21% over two years compounds to 10% per year.
	suite.InDelta(10.0, CAGR(decimal.NewFromInt(100), decimal.NewFromInt(121), 2), 1e-9)
	suite.Zero(CAGR(decimal.NewFromInt(100), decimal.NewFromInt(121), 0))
}

func (suite *MetricsTestSuite) TestDailyReturns() {
	returns := DailyReturns([]float64{100, 110, 99})

	suite.Len(returns, 2)
	suite.InDelta(0.1, returns[0], 1e-9)
	suite.InDelta(-0.1, returns[1], 1e-9)
}

func (suite *MetricsTestSuite) TestDailyReturnsShortSeries() {
	suite.Nil(DailyReturns([]float64{100}))
	suite.Nil(DailyReturns(nil))
}

func (suite *MetricsTestSuite) TestMaxDrawdown() {
	info := MaxDrawdown([]float64{100, 120, 90, 100, 130})

	suite.InDelta(-25.0, info.MDD, 1e-9)
	suite.Equal(1, info.PeakIndex)
	suite.Equal(2, info.ValleyIndex)
	suite.Equal(3, info.RecoveryDays)
}

func (suite *MetricsTestSuite) TestMaxDrawdownMonotoneRise() {
	info := MaxDrawdown([]float64{100, 110, 120})

	suite.Zero(info.MDD)
	suite.Zero(info.RecoveryDays)
}

func (suite *MetricsTestSuite) TestMaxDrawdownNeverPositive() {
	info := MaxDrawdown([]float64{50, 80, 60, 90, 40, 100})
	suite.LessOrEqual(info.MDD, 0.0)
}

func (suite *MetricsTestSuite) TestVolatility() {
	// Alternating ±1% dailies: sample stddev is sqrt(4e-4/3).
	got := Volatility([]float64{0.01, -0.01, 0.01, -0.01})
	want := math.Sqrt(4e-4/3) * math.Sqrt(252) * 100

	suite.InDelta(want, got, 1e-9)
	suite.InDelta(18.33, got, 0.01)
}

func (suite *MetricsTestSuite) TestVolatilityEmpty() {
	suite.Zero(Volatility(nil))
}

func (suite *MetricsTestSuite) TestSharpeRatio() {
	suite.InDelta(0.35, SharpeRatio(10, 20, 3), 1e-9)
	suite.Zero(SharpeRatio(10, 0, 3))
}

func (suite *MetricsTestSuite) TestSortinoRatio() {
	dailies := []float64{0.02, -0.01, 0.03, -0.03}

	downside := math.Sqrt(2e-4) * math.Sqrt(252) * 100
	want := (10.0 - 3.0) / downside

	suite.InDelta(want, SortinoRatio(dailies, 10, 3), 1e-9)
}

func (suite *MetricsTestSuite) TestSortinoRatioNoLosses() {
	suite.Zero(SortinoRatio([]float64{0.01, 0.02}, 10, 3))
}

func (suite *MetricsTestSuite) TestCalmarRatio() {
	suite.InDelta(0.5, CalmarRatio(10, -20), 1e-9)
	suite.Zero(CalmarRatio(10, 0))
}

func (suite *MetricsTestSuite) TestVaR95Interpolates() {
	returns := []float64{-0.05, -0.03, -0.01, 0.01, 0.02}

	// 5th percentile sits 20% of the way from -0.05 to -0.03.
	suite.InDelta(-4.6, VaR95(returns), 1e-9)
}

func (suite *MetricsTestSuite) TestVaR95SingleValue() {
	suite.InDelta(-2.0, VaR95([]float64{-0.02}), 1e-9)
	suite.Zero(VaR95(nil))
}
