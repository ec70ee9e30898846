// Package indicator provides pure window calculations over closing-price
// series. All functions operate on the trailing window of the given slice
// and report ok=false when the series is shorter than the period.
package indicator

import "math"

// Bands holds an upper/middle/lower band triplet, as produced by
// BollingerBands and Envelope.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// SMA returns the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}

	window := prices[len(prices)-period:]

	sum := 0.0
	for _, p := range window {
		sum += p
	}

	return sum / float64(period), true
}

// StdDev returns the population standard deviation of the last period
// prices.
func StdDev(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period {
		return 0, false
	}

	mean, _ := SMA(prices, period)
	window := prices[len(prices)-period:]

	variance := 0.0
	for _, p := range window {
		d := p - mean
		variance += d * d
	}

	variance /= float64(period)

	return math.Sqrt(variance), true
}

// BollingerBands returns the Bollinger band triplet: the period SMA as
// the middle band and middle ± stdMultiplier standard deviations as the
// outer bands.
func BollingerBands(prices []float64, period int, stdMultiplier float64) (Bands, bool) {
	middle, ok := SMA(prices, period)
	if !ok {
		return Bands{}, false
	}

	std, _ := StdDev(prices, period)

	return Bands{
		Upper:  middle + std*stdMultiplier,
		Middle: middle,
		Lower:  middle - std*stdMultiplier,
	}, true
}

// Envelope returns the envelope channel around the period SMA. The upper
// band is the SMA scaled up by percentage percent and the lower band is
// the SMA scaled down by the same factor.
func Envelope(prices []float64, period int, percentage float64) (Bands, bool) {
	middle, ok := SMA(prices, period)
	if !ok {
		return Bands{}, false
	}

	multiplier := 1 + percentage/100

	return Bands{
		Upper:  middle * multiplier,
		Middle: middle,
		Lower:  middle / multiplier,
	}, true
}

// RSI returns the Wilder relative strength index over the last period
// price changes. It needs period+1 prices; when the window shows no
// losses the index saturates at 100.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}

	window := prices[len(prices)-period-1:]

	gains := 0.0
	losses := 0.0

	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100, true
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs), true
}

// BollingerBandwidth returns the width of a Bollinger band triplet
// relative to its middle band.
func BollingerBandwidth(b Bands) float64 {
	if b.Middle == 0 {
		return 0
	}

	return (b.Upper - b.Lower) / b.Middle
}
