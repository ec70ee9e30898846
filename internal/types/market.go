package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV record for one simulated trading day.
//
// The simulator itself only consumes Close; Open/High/Low/Volume are carried
// for signal functions and reporting. Prices are decimal so that cash
// arithmetic downstream never goes through binary floating point.
type Bar struct {
	Time   time.Time       `yaml:"time" csv:"time"`
	Open   decimal.Decimal `yaml:"open" csv:"open"`
	High   decimal.Decimal `yaml:"high" csv:"high"`
	Low    decimal.Decimal `yaml:"low" csv:"low"`
	Close  decimal.Decimal `yaml:"close" csv:"close"`
	Volume int64           `yaml:"volume" csv:"volume"`
}

// Closes extracts the close series as float64, oldest first. Indicator and
// statistics code operates on floats; only cash arithmetic stays decimal.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close.InexactFloat64()
	}

	return closes
}
