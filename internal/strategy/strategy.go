// Package strategy bundles the signal generators shipped with the
// simulator. Each factory returns a types.SignalFunc closed over its
// configuration, so the engine stays agnostic of how signals are made.
package strategy

import (
	"github.com/isinthesky/envelope-backtest/internal/indicator"
	"github.com/isinthesky/envelope-backtest/internal/types"
)

const (
	// DefaultBreakoutThreshold is the band breach margin used when a
	// config leaves Threshold at zero. A close must clear the band by
	// this fraction before it counts as a breakout.
	DefaultBreakoutThreshold = 0.001
)

// BollingerEnvelopeConfig configures the combined Bollinger band +
// envelope mean-reversion signal.
type BollingerEnvelopeConfig struct {
	BollingerPeriod        int     `yaml:"bollinger_period" validate:"gte=5,lte=200"`
	BollingerStdMultiplier float64 `yaml:"bollinger_std_multiplier" validate:"gte=1,lte=4"`
	EnvelopePeriod         int     `yaml:"envelope_period" validate:"gte=5,lte=200"`
	EnvelopePercentage     float64 `yaml:"envelope_percentage" validate:"gte=0.5,lte=10"`
	// Threshold is the band breach margin as a fraction of the band
	// price. Zero means DefaultBreakoutThreshold.
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=0.1"`
	// StrictMode requires both band sets to be breached before a
	// signal fires. When false a single breach is enough.
	StrictMode bool `yaml:"strict_mode"`
}

// DefaultBollingerEnvelopeConfig returns the configuration the original
// envelope strategy ships with.
func DefaultBollingerEnvelopeConfig() BollingerEnvelopeConfig {
	return BollingerEnvelopeConfig{
		BollingerPeriod:        20,
		BollingerStdMultiplier: 2.0,
		EnvelopePeriod:         20,
		EnvelopePercentage:     2.0,
		Threshold:              DefaultBreakoutThreshold,
		StrictMode:             true,
	}
}

// NewBollingerEnvelope returns a SignalFunc implementing the combined
// mean-reversion rule: buy when the close breaks under the lower bands,
// sell when it breaks over the upper bands, hold otherwise. While the
// history is shorter than the longest period the signal is always Hold.
func NewBollingerEnvelope(cfg BollingerEnvelopeConfig) types.SignalFunc {
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultBreakoutThreshold
	}

	minPeriod := cfg.BollingerPeriod
	if cfg.EnvelopePeriod > minPeriod {
		minPeriod = cfg.EnvelopePeriod
	}

	return func(history []types.Bar) types.Signal {
		if len(history) < minPeriod {
			return types.SignalHold
		}

		closes := types.Closes(history)
		currentPrice := closes[len(closes)-1]

		bb, ok := indicator.BollingerBands(closes, cfg.BollingerPeriod, cfg.BollingerStdMultiplier)
		if !ok {
			return types.SignalHold
		}

		env, ok := indicator.Envelope(closes, cfg.EnvelopePeriod, cfg.EnvelopePercentage)
		if !ok {
			return types.SignalHold
		}

		belowBB := currentPrice < bb.Lower*(1-threshold)
		belowEnv := currentPrice < env.Lower*(1-threshold)
		aboveBB := currentPrice > bb.Upper*(1+threshold)
		aboveEnv := currentPrice > env.Upper*(1+threshold)

		if cfg.StrictMode {
			if belowBB && belowEnv {
				return types.SignalBuy
			}

			if aboveBB && aboveEnv {
				return types.SignalSell
			}

			return types.SignalHold
		}

		if belowBB || belowEnv {
			return types.SignalBuy
		}

		if aboveBB || aboveEnv {
			return types.SignalSell
		}

		return types.SignalHold
	}
}
