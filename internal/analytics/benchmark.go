package analytics

import "math"

// Beta is the covariance of strategy and market daily returns over the
// market variance. Series are paired index-wise and truncated to the
// shorter length; fewer than two pairs, or a flat market, yield 0.
func Beta(strategyReturns, marketReturns []float64) float64 {
	n := len(strategyReturns)
	if len(marketReturns) < n {
		n = len(marketReturns)
	}

	if n < 2 {
		return 0
	}

	strategy := strategyReturns[:n]
	market := marketReturns[:n]

	marketVariance := sampleVariance(market)
	if marketVariance == 0 {
		return 0
	}

	return sampleCovariance(strategy, market) / marketVariance
}

// Alpha is the strategy return in excess of the CAPM-expected return given
// its beta. All returns are percentages.
func Alpha(strategyReturn, marketReturn, beta, riskFreeRate float64) float64 {
	expectedReturn := riskFreeRate + beta*(marketReturn-riskFreeRate)

	return strategyReturn - expectedReturn
}

// TrackingError is the annualized standard deviation of the daily return
// difference between strategy and benchmark, in percent.
func TrackingError(strategyReturns, benchmarkReturns []float64) float64 {
	n := len(strategyReturns)
	if len(benchmarkReturns) < n {
		n = len(benchmarkReturns)
	}

	if n < 2 {
		return 0
	}

	excess := make([]float64, n)
	for i := 0; i < n; i++ {
		excess[i] = strategyReturns[i] - benchmarkReturns[i]
	}

	return sampleStdDev(excess) * math.Sqrt(tradingDaysPerYear) * 100
}

// InformationRatio relates the return earned over the benchmark to the
// tracking error; 0 when the tracking error is 0.
func InformationRatio(strategyReturn, benchmarkReturn, trackingError float64) float64 {
	if trackingError == 0 {
		return 0
	}

	return (strategyReturn - benchmarkReturn) / trackingError
}

// sampleCovariance is the ddof=1 covariance of two equal-length series.
func sampleCovariance(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}

	meanA := mean(a)
	meanB := mean(b)
	sum := 0.0

	for i := range a {
		sum += (a[i] - meanA) * (b[i] - meanB)
	}

	return sum / float64(len(a)-1)
}
