package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func (suite *IndicatorTestSuite) TestSMA() {
	got, ok := SMA([]float64{1, 2, 3, 4, 5}, 5)

	suite.True(ok)
	suite.InDelta(3.0, got, 1e-9)
}

func (suite *IndicatorTestSuite) TestSMAUsesTrailingWindow() {
	got, ok := SMA([]float64{100, 100, 1, 2, 3}, 3)

	suite.True(ok)
	suite.InDelta(2.0, got, 1e-9)
}

func (suite *IndicatorTestSuite) TestSMAInsufficientData() {
	_, ok := SMA([]float64{1, 2}, 3)
	suite.False(ok)

	_, ok = SMA(nil, 1)
	suite.False(ok)

	_, ok = SMA([]float64{1, 2, 3}, 0)
	suite.False(ok)
}

func (suite *IndicatorTestSuite) TestStdDevPopulation() {
	// Classic population-stddev example: variance 4, stddev 2.
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	got, ok := StdDev(prices, 8)

	suite.True(ok)
	suite.InDelta(2.0, got, 1e-9)
}

func (suite *IndicatorTestSuite) TestStdDevFlatWindow() {
	got, ok := StdDev([]float64{5, 5, 5, 5}, 4)

	suite.True(ok)
	suite.Zero(got)
}

func (suite *IndicatorTestSuite) TestBollingerBands() {
	prices := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	bands, ok := BollingerBands(prices, 8, 2.0)

	suite.True(ok)
	suite.InDelta(5.0, bands.Middle, 1e-9)
	suite.InDelta(9.0, bands.Upper, 1e-9)
	suite.InDelta(1.0, bands.Lower, 1e-9)
}

func (suite *IndicatorTestSuite) TestBollingerBandsInsufficientData() {
	_, ok := BollingerBands([]float64{1, 2}, 5, 2.0)
	suite.False(ok)
}

func (suite *IndicatorTestSuite) TestEnvelope() {
	prices := []float64{100, 100, 100, 100}

	bands, ok := Envelope(prices, 4, 2.0)

	suite.True(ok)
	suite.InDelta(100.0, bands.Middle, 1e-9)
	suite.InDelta(102.0, bands.Upper, 1e-9)
	// The lower band divides rather than subtracts, so the channel is
	// not symmetric.
	suite.InDelta(100.0/1.02, bands.Lower, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIAllGains() {
	got, ok := RSI([]float64{1, 2, 3, 4}, 3)

	suite.True(ok)
	suite.InDelta(100.0, got, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSIMixed() {
	// Changes: +1, -1, +1 over period 3: RS = 2, RSI = 66.67.
	got, ok := RSI([]float64{10, 11, 10, 11}, 3)

	suite.True(ok)
	suite.InDelta(100.0-100.0/3.0, got, 1e-9)
}

func (suite *IndicatorTestSuite) TestRSINeedsPeriodPlusOne() {
	_, ok := RSI([]float64{1, 2, 3}, 3)
	suite.False(ok)
}

func (suite *IndicatorTestSuite) TestBollingerBandwidth() {
	bw := BollingerBandwidth(Bands{Upper: 110, Middle: 100, Lower: 90})

	suite.InDelta(0.2, bw, 1e-9)
	suite.Zero(BollingerBandwidth(Bands{}))
}
