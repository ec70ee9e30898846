package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/isinthesky/envelope-backtest/internal/analytics"
	"github.com/isinthesky/envelope-backtest/internal/backtest/costmodel"
	"github.com/isinthesky/envelope-backtest/internal/backtest/engine"
	"github.com/isinthesky/envelope-backtest/internal/backtest/ledger"
	"github.com/isinthesky/envelope-backtest/internal/logger"
	"github.com/isinthesky/envelope-backtest/internal/types"
	"github.com/isinthesky/envelope-backtest/pkg/errors"
)

// SimulatorV1 replays a daily bar series through a signal function, one
// day at a time: risk exits first, then the signal, then order dispatch,
// then mark-to-market and the daily snapshot. All cash and position
// arithmetic is decimal; statistics are computed in float64 afterwards.
type SimulatorV1 struct {
	config        SimulatorV1Config
	log           *logger.Logger
	costs         *costmodel.CostModel
	positions     *ledger.Ledger
	recorder      *RunRecorder
	signalFn      types.SignalFunc
	benchmark     []types.Bar
	resultsFolder string
	initialized   bool

	// per-run state, reset at the top of Run
	cash        decimal.Decimal
	trades      []types.Trade
	dailyStats  []types.DailySnapshot
	equityCurve []float64
	history     []types.Bar
}

// NewSimulatorV1 creates an uninitialized simulator.
func NewSimulatorV1() engine.Simulator {
	return &SimulatorV1{}
}

// Initialize implements engine.Simulator.
func (s *SimulatorV1) Initialize(config string) error {
	cfg := EmptyConfig()
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	recorder, err := NewRunRecorder(log)
	if err != nil {
		return err
	}

	if err := recorder.Initialize(); err != nil {
		return err
	}

	s.config = cfg
	s.log = log
	s.costs = costmodel.New(cfg.Cost)
	s.positions = ledger.New()
	s.recorder = recorder
	s.initialized = true

	s.log.Debug("simulator initialized",
		zap.Float64("initial_capital", cfg.InitialCapital),
		zap.Float64("allocation_ratio", cfg.AllocationRatio),
	)

	return nil
}

// SetSignalFunc implements engine.Simulator.
func (s *SimulatorV1) SetSignalFunc(fn types.SignalFunc) error {
	if fn == nil {
		return errors.New(errors.ErrCodeNoSignalFunction, "signal function is nil")
	}

	s.signalFn = fn

	return nil
}

// SetBenchmark implements engine.Simulator.
func (s *SimulatorV1) SetBenchmark(bars []types.Bar) {
	s.benchmark = bars
}

// SetResultsFolder implements engine.Simulator.
func (s *SimulatorV1) SetResultsFolder(folder string) error {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("failed to create results folder: %w", err)
	}

	s.resultsFolder = folder

	return nil
}

func (s *SimulatorV1) preRunCheck() error {
	if !s.initialized {
		return errors.New(errors.ErrCodeSimulationNotInitialized, "simulator is not initialized")
	}

	if s.signalFn == nil {
		return errors.New(errors.ErrCodeNoSignalFunction, "no signal function set")
	}

	return nil
}

func (s *SimulatorV1) reset() {
	s.cash = decimal.NewFromFloat(s.config.InitialCapital)
	s.trades = s.trades[:0]
	s.dailyStats = s.dailyStats[:0]
	s.equityCurve = s.equityCurve[:0]
	s.history = s.history[:0]
	s.positions.ClearAll()
}

// Run implements engine.Simulator.
func (s *SimulatorV1) Run(ctx context.Context, symbol string, bars []types.Bar, callbacks engine.LifecycleCallbacks) (result *types.Result, err error) {
	if err := s.preRunCheck(); err != nil {
		return nil, err
	}

	runID := uuid.New().String()

	defer func() {
		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(runID, err)
		}
	}()

	bars = s.config.filterBars(bars)
	s.reset()

	if callbacks.OnRunStart != nil {
		if err = (*callbacks.OnRunStart)(runID, symbol, len(bars)); err != nil {
			return nil, err
		}
	}

	s.log.Info("run started",
		zap.String("run_id", runID),
		zap.String("symbol", symbol),
		zap.Int("days", len(bars)),
	)

	for i, bar := range bars {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Wrap(errors.ErrCodeSimulationFailed, "run canceled", ctxErr)

			return nil, err
		}

		s.history = append(s.history, bar)
		s.processDay(symbol, bar)

		if callbacks.OnDay != nil {
			if err = (*callbacks.OnDay)(i+1, len(bars)); err != nil {
				return nil, err
			}
		}
	}

	result = s.buildResult(symbol, bars)

	if recErr := s.record(runID, result); recErr != nil {
		err = recErr

		return nil, err
	}

	s.log.Info("run finished",
		zap.String("run_id", runID),
		zap.Float64("total_return", result.TotalReturn),
		zap.Int("total_trades", result.TotalTrades),
	)

	return result, nil
}

// processDay runs one simulated day. A risk exit and a new entry can
// happen on the same day: the exit is evaluated against the open before
// the fresh signal is acted on.
func (s *SimulatorV1) processDay(symbol string, bar types.Bar) {
	price := bar.Close
	date := bar.Time

	s.checkRiskManagement(symbol, date, price)

	signal := s.signalFn(s.history)

	switch {
	case signal == types.SignalBuy && !s.positions.Has(symbol):
		s.executeBuy(symbol, date, price)
	case signal == types.SignalSell && s.positions.Has(symbol) && s.config.Risk.UseReverseSignalExit:
		s.executeSell(symbol, date, price, types.ExitReasonSignal)
	}

	positionValue := s.positions.MarkToMarket(map[string]decimal.Decimal{symbol: price})

	s.updateDailyStats(date, positionValue)
}

// checkRiskManagement applies the exit rules in fixed priority: stop
// loss, take profit, trailing stop. The first rule that fires closes the
// position and ends the check.
func (s *SimulatorV1) checkRiskManagement(symbol string, date time.Time, price decimal.Decimal) {
	if !s.positions.Has(symbol) {
		return
	}

	risk := s.config.Risk

	if risk.UseStopLoss && risk.StopLossRatio.IsSome() {
		if s.positions.CheckStopLoss(symbol, price, risk.StopLossRatio.Unwrap()) {
			s.executeSell(symbol, date, price, types.ExitReasonStopLoss)

			return
		}
	}

	if risk.UseTakeProfit && risk.TakeProfitRatio.IsSome() {
		if s.positions.CheckTakeProfit(symbol, price, risk.TakeProfitRatio.Unwrap()) {
			s.executeSell(symbol, date, price, types.ExitReasonTakeProfit)

			return
		}
	}

	if risk.UseTrailingStop && risk.TrailingStopRatio.IsSome() {
		if s.positions.CheckTrailingStop(symbol, price, risk.TrailingStopRatio.Unwrap()) {
			s.executeSell(symbol, date, price, types.ExitReasonTrailingStop)

			return
		}
	}
}

func (s *SimulatorV1) executeBuy(symbol string, date time.Time, price decimal.Decimal) {
	quantity := s.costs.PositionSize(s.cash, s.config.AllocationRatio, price)
	if quantity == 0 {
		return
	}

	if !s.costs.CanAfford(s.cash, price, quantity) {
		return
	}

	trade, totalCost := s.costs.ExecuteBuy(symbol, price, quantity, date)

	s.cash = s.cash.Sub(totalCost)
	s.positions.Open(symbol, quantity, trade.EntryPrice, date, trade.ID)
	s.trades = append(s.trades, trade)

	s.log.Debug("buy executed",
		zap.String("symbol", symbol),
		zap.Time("date", date),
		zap.Int64("quantity", quantity),
		zap.String("price", trade.EntryPrice.String()),
	)
}

func (s *SimulatorV1) executeSell(symbol string, date time.Time, price decimal.Decimal, reason types.ExitReason) {
	position := s.positions.Get(symbol)
	if position.IsNone() {
		return
	}

	openIdx := -1

	for i, trade := range s.trades {
		if trade.ID == position.Unwrap().TradeID {
			openIdx = i

			break
		}
	}

	if openIdx < 0 {
		return
	}

	completed, netProceeds := s.costs.ExecuteSell(s.trades[openIdx], price, date, reason)

	s.cash = s.cash.Add(netProceeds)
	s.positions.Close(symbol)
	s.trades[openIdx] = completed

	s.log.Debug("sell executed",
		zap.String("symbol", symbol),
		zap.Time("date", date),
		zap.String("reason", string(reason)),
		zap.String("profit", completed.Profit.Unwrap().String()),
	)
}

// updateDailyStats appends the end-of-day snapshot. Drawdown is measured
// against the running equity peak so far.
func (s *SimulatorV1) updateDailyStats(date time.Time, positionValue decimal.Decimal) {
	equity := s.cash.Add(positionValue)
	equityFloat, _ := equity.Float64()

	dailyReturn := 0.0

	if len(s.equityCurve) > 0 {
		prev := s.equityCurve[len(s.equityCurve)-1]
		if prev > 0 {
			dailyReturn = (equityFloat - prev) / prev * 100
		}
	}

	s.equityCurve = append(s.equityCurve, equityFloat)

	cumulativeReturn := 0.0
	if s.config.InitialCapital > 0 {
		cumulativeReturn = (equityFloat - s.config.InitialCapital) / s.config.InitialCapital * 100
	}

	peak := s.equityCurve[0]
	for _, e := range s.equityCurve {
		if e > peak {
			peak = e
		}
	}

	drawdown := 0.0
	if peak > 0 {
		drawdown = (equityFloat - peak) / peak * 100
	}

	s.dailyStats = append(s.dailyStats, types.DailySnapshot{
		Date:             date,
		Equity:           equity,
		Cash:             s.cash,
		PositionValue:    positionValue,
		DailyReturn:      dailyReturn,
		CumulativeReturn: cumulativeReturn,
		Drawdown:         drawdown,
	})
}

// buildResult derives the full report from the run state. An empty bar
// series yields zero trades with final capital equal to initial.
func (s *SimulatorV1) buildResult(symbol string, bars []types.Bar) *types.Result {
	initial := decimal.NewFromFloat(s.config.InitialCapital)

	final := initial
	if len(s.equityCurve) > 0 {
		final = s.dailyStats[len(s.dailyStats)-1].Equity
	}

	var startDate, endDate time.Time
	if len(bars) > 0 {
		startDate = bars[0].Time
		endDate = bars[len(bars)-1].Time
	}

	totalReturn := analytics.TotalReturn(initial, final)
	annualized := analytics.AnnualizedReturn(initial, final, startDate, endDate)
	years := endDate.Sub(startDate).Hours() / 24 / 365
	cagr := analytics.CAGR(initial, final, years)

	mdd := analytics.MaxDrawdown(s.equityCurve)
	dailyReturns := analytics.DailyReturns(s.equityCurve)
	volatility := analytics.Volatility(dailyReturns)
	sharpe := analytics.SharpeRatio(annualized, volatility, s.config.RiskFreeRate)
	sortino := analytics.SortinoRatio(dailyReturns, annualized, s.config.RiskFreeRate)
	calmar := analytics.CalmarRatio(annualized, mdd.MDD)
	var95 := analytics.VaR95(dailyReturns)

	counts := analytics.CountTrades(s.trades)
	winRate := analytics.WinRate(s.trades)
	profitFactor := analytics.ProfitFactor(s.trades)
	avgPL := analytics.AvgProfitLoss(s.trades)
	holding := analytics.AvgHoldingPeriod(s.trades)
	streaks := analytics.ConsecutiveWinsLosses(s.trades)

	result := &types.Result{
		Symbol:         symbol,
		StartDate:      startDate,
		EndDate:        endDate,
		InitialCapital: initial,
		FinalCapital:   final,

		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		CAGR:             cagr,

		MDD:             mdd.MDD,
		MDDPeakIndex:    mdd.PeakIndex,
		MDDValleyIndex:  mdd.ValleyIndex,
		MDDRecoveryDays: mdd.RecoveryDays,
		Volatility:      volatility,
		SharpeRatio:     sharpe,
		SortinoRatio:    sortino,
		CalmarRatio:     calmar,
		VaR95:           var95,

		TotalTrades:          counts.Total,
		WinningTrades:        counts.Wins,
		LosingTrades:         counts.Losses,
		BreakevenTrades:      counts.Breakeven,
		WinRate:              winRate,
		ProfitFactor:         profitFactor,
		AvgWin:               avgPL.AvgWin,
		AvgLoss:              avgPL.AvgLoss,
		AvgWinLossRatio:      avgPL.AvgWinLossRatio,
		AvgHoldingDays:       holding.AvgDays,
		MaxHoldingDays:       holding.MaxDays,
		MinHoldingDays:       holding.MinDays,
		MaxConsecutiveWins:   streaks.MaxConsecutiveWins,
		MaxConsecutiveLosses: streaks.MaxConsecutiveLosses,

		BenchmarkReturn:  optional.None[float64](),
		Alpha:            optional.None[float64](),
		Beta:             optional.None[float64](),
		TrackingError:    optional.None[float64](),
		InformationRatio: optional.None[float64](),

		Trades:     append([]types.Trade(nil), s.trades...),
		DailyStats: append([]types.DailySnapshot(nil), s.dailyStats...),
	}

	s.applyBenchmark(result)

	return result
}

// applyBenchmark fills the comparison fields when a benchmark series was
// supplied. Benchmark daily returns come from its close series clipped
// to the run period.
func (s *SimulatorV1) applyBenchmark(result *types.Result) {
	if len(s.benchmark) == 0 || len(s.equityCurve) < 2 {
		return
	}

	bench := s.config.filterBars(s.benchmark)
	if len(bench) < 2 {
		return
	}

	benchCloses := types.Closes(bench)
	benchReturns := analytics.DailyReturns(benchCloses)
	strategyReturns := types.DailyReturns(s.dailyStats)

	benchmarkReturn := (benchCloses[len(benchCloses)-1] - benchCloses[0]) / benchCloses[0] * 100
	beta := analytics.Beta(strategyReturns, benchReturns)
	alpha := analytics.Alpha(result.AnnualizedReturn, benchmarkReturn, beta, s.config.RiskFreeRate)
	trackingError := analytics.TrackingError(strategyReturns, benchReturns)
	infoRatio := analytics.InformationRatio(result.AnnualizedReturn, benchmarkReturn, trackingError)

	result.BenchmarkReturn = optional.Some(benchmarkReturn)
	result.Alpha = optional.Some(alpha)
	result.Beta = optional.Some(beta)
	result.TrackingError = optional.Some(trackingError)
	result.InformationRatio = optional.Some(infoRatio)
}

// record persists the run into the recorder and, when a results folder
// is set, exports the artifact files.
func (s *SimulatorV1) record(runID string, result *types.Result) error {
	if err := s.recorder.RecordRun(runID, result); err != nil {
		return err
	}

	if s.resultsFolder == "" {
		return nil
	}

	runFolder := filepath.Join(s.resultsFolder, fmt.Sprintf("%s_%s", result.Symbol, runID[:8]))
	if err := os.MkdirAll(runFolder, 0755); err != nil {
		return fmt.Errorf("failed to create run folder: %w", err)
	}

	if err := types.WriteResult(filepath.Join(runFolder, "stats.yaml"), *result); err != nil {
		return err
	}

	return s.recorder.Export(runID, runFolder)
}

// Cleanup releases the recorder's database. The simulator is unusable
// afterwards.
func (s *SimulatorV1) Cleanup() error {
	if s.recorder != nil {
		return s.recorder.Close()
	}

	return nil
}
