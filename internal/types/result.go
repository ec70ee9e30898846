package types

import (
	"fmt"
	"os"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Result aggregates one finished simulation run. It is built once, after the
// day loop completes, and carries no behavior.
type Result struct {
	// Run identity
	Symbol         string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal

	// Return metrics (percent)
	TotalReturn      float64
	AnnualizedReturn float64
	CAGR             float64

	// Risk metrics
	MDD             float64
	MDDPeakIndex    int
	MDDValleyIndex  int
	MDDRecoveryDays int
	Volatility      float64
	SharpeRatio     float64
	SortinoRatio    float64
	CalmarRatio     float64
	VaR95           float64

	// Trade statistics
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	BreakevenTrades      int
	WinRate              float64
	ProfitFactor         float64
	AvgWin               float64
	AvgLoss              float64
	AvgWinLossRatio      float64
	AvgHoldingDays       float64
	MaxHoldingDays       int
	MinHoldingDays       int
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int

	// Benchmark comparison, present only when a benchmark series was
	// supplied to the run.
	BenchmarkReturn  optional.Option[float64]
	Alpha            optional.Option[float64]
	Beta             optional.Option[float64]
	TrackingError    optional.Option[float64]
	InformationRatio optional.Option[float64]

	// Detail rows for downstream reporting
	Trades     []Trade
	DailyStats []DailySnapshot
}

// resultYAML mirrors Result with pointer fields so that optional values
// serialize as null instead of requiring Option-aware encoders.
type resultYAML struct {
	Symbol         string          `yaml:"symbol"`
	StartDate      time.Time       `yaml:"start_date"`
	EndDate        time.Time       `yaml:"end_date"`
	InitialCapital decimal.Decimal `yaml:"initial_capital"`
	FinalCapital   decimal.Decimal `yaml:"final_capital"`

	TotalReturn      float64 `yaml:"total_return"`
	AnnualizedReturn float64 `yaml:"annualized_return"`
	CAGR             float64 `yaml:"cagr"`

	MDD             float64 `yaml:"mdd"`
	MDDPeakIndex    int     `yaml:"mdd_peak_index"`
	MDDValleyIndex  int     `yaml:"mdd_valley_index"`
	MDDRecoveryDays int     `yaml:"mdd_recovery_days"`
	Volatility      float64 `yaml:"volatility"`
	SharpeRatio     float64 `yaml:"sharpe_ratio"`
	SortinoRatio    float64 `yaml:"sortino_ratio"`
	CalmarRatio     float64 `yaml:"calmar_ratio"`
	VaR95           float64 `yaml:"var_95"`

	TotalTrades          int     `yaml:"total_trades"`
	WinningTrades        int     `yaml:"winning_trades"`
	LosingTrades         int     `yaml:"losing_trades"`
	BreakevenTrades      int     `yaml:"breakeven_trades"`
	WinRate              float64 `yaml:"win_rate"`
	ProfitFactor         float64 `yaml:"profit_factor"`
	AvgWin               float64 `yaml:"avg_win"`
	AvgLoss              float64 `yaml:"avg_loss"`
	AvgWinLossRatio      float64 `yaml:"avg_win_loss_ratio"`
	AvgHoldingDays       float64 `yaml:"avg_holding_days"`
	MaxHoldingDays       int     `yaml:"max_holding_days"`
	MinHoldingDays       int     `yaml:"min_holding_days"`
	MaxConsecutiveWins   int     `yaml:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`

	BenchmarkReturn  *float64 `yaml:"benchmark_return"`
	Alpha            *float64 `yaml:"alpha"`
	Beta             *float64 `yaml:"beta"`
	TrackingError    *float64 `yaml:"tracking_error"`
	InformationRatio *float64 `yaml:"information_ratio"`

	Trades     []tradeYAML     `yaml:"trades"`
	DailyStats []DailySnapshot `yaml:"daily_stats"`
}

type tradeYAML struct {
	ID          string           `yaml:"id"`
	Symbol      string           `yaml:"symbol"`
	Side        Side             `yaml:"side"`
	EntryDate   time.Time        `yaml:"entry_date"`
	EntryPrice  decimal.Decimal  `yaml:"entry_price"`
	ExitDate    *time.Time       `yaml:"exit_date"`
	ExitPrice   *decimal.Decimal `yaml:"exit_price"`
	Quantity    int64            `yaml:"quantity"`
	Commission  decimal.Decimal  `yaml:"commission"`
	Tax         decimal.Decimal  `yaml:"tax"`
	Profit      *decimal.Decimal `yaml:"profit"`
	ProfitRate  *float64         `yaml:"profit_rate"`
	HoldingDays *int             `yaml:"holding_days"`
	ExitReason  *ExitReason      `yaml:"exit_reason"`
}

func optionPtr[T any](opt optional.Option[T]) *T {
	if opt.IsNone() {
		return nil
	}

	value := opt.Unwrap()

	return &value
}

// MarshalYAML implements yaml.Marshaler so Option fields serialize as null
// while unset.
func (t Trade) MarshalYAML() (interface{}, error) {
	return tradeYAML{
		ID:          t.ID,
		Symbol:      t.Symbol,
		Side:        t.Side,
		EntryDate:   t.EntryDate,
		EntryPrice:  t.EntryPrice,
		ExitDate:    optionPtr(t.ExitDate),
		ExitPrice:   optionPtr(t.ExitPrice),
		Quantity:    t.Quantity,
		Commission:  t.Commission,
		Tax:         t.Tax,
		Profit:      optionPtr(t.Profit),
		ProfitRate:  optionPtr(t.ProfitRate),
		HoldingDays: optionPtr(t.HoldingDays),
		ExitReason:  optionPtr(t.ExitReason),
	}, nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Result) MarshalYAML() (interface{}, error) {
	trades := make([]tradeYAML, 0, len(r.Trades))

	for _, trade := range r.Trades {
		row, err := trade.MarshalYAML()
		if err != nil {
			return nil, err
		}

		trades = append(trades, row.(tradeYAML))
	}

	return resultYAML{
		Symbol:               r.Symbol,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		InitialCapital:       r.InitialCapital,
		FinalCapital:         r.FinalCapital,
		TotalReturn:          r.TotalReturn,
		AnnualizedReturn:     r.AnnualizedReturn,
		CAGR:                 r.CAGR,
		MDD:                  r.MDD,
		MDDPeakIndex:         r.MDDPeakIndex,
		MDDValleyIndex:       r.MDDValleyIndex,
		MDDRecoveryDays:      r.MDDRecoveryDays,
		Volatility:           r.Volatility,
		SharpeRatio:          r.SharpeRatio,
		SortinoRatio:         r.SortinoRatio,
		CalmarRatio:          r.CalmarRatio,
		VaR95:                r.VaR95,
		TotalTrades:          r.TotalTrades,
		WinningTrades:        r.WinningTrades,
		LosingTrades:         r.LosingTrades,
		BreakevenTrades:      r.BreakevenTrades,
		WinRate:              r.WinRate,
		ProfitFactor:         r.ProfitFactor,
		AvgWin:               r.AvgWin,
		AvgLoss:              r.AvgLoss,
		AvgWinLossRatio:      r.AvgWinLossRatio,
		AvgHoldingDays:       r.AvgHoldingDays,
		MaxHoldingDays:       r.MaxHoldingDays,
		MinHoldingDays:       r.MinHoldingDays,
		MaxConsecutiveWins:   r.MaxConsecutiveWins,
		MaxConsecutiveLosses: r.MaxConsecutiveLosses,
		BenchmarkReturn:      optionPtr(r.BenchmarkReturn),
		Alpha:                optionPtr(r.Alpha),
		Beta:                 optionPtr(r.Beta),
		TrackingError:        optionPtr(r.TrackingError),
		InformationRatio:     optionPtr(r.InformationRatio),
		Trades:               trades,
		DailyStats:           r.DailyStats,
	}, nil
}

// WriteResult serializes a run result to a YAML file.
func WriteResult(path string, result Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result to file: %w", err)
	}

	return nil
}
