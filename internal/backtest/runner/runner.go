// Package runner fans independent simulations out across symbols. Each
// symbol gets its own simulator instance, so runs share nothing and any
// subset may fail without touching the others.
package runner

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/isinthesky/envelope-backtest/internal/backtest/engine"
	"github.com/isinthesky/envelope-backtest/internal/logger"
	"github.com/isinthesky/envelope-backtest/internal/types"
)

// DefaultConcurrency bounds how many symbols simulate at once.
const DefaultConcurrency = 4

// SimulatorFactory builds a fresh, uninitialized simulator for one
// symbol's run.
type SimulatorFactory func() engine.Simulator

// SymbolResult is the outcome for one symbol, failed or not.
type SymbolResult struct {
	Symbol string
	Result *types.Result
	Err    error
}

// Report collects the per-symbol outcomes of one batch.
type Report struct {
	Results   []SymbolResult
	Succeeded int
	Failed    int
}

// Runner executes one simulation per symbol with bounded concurrency.
type Runner struct {
	factory     SimulatorFactory
	config      string
	signalFn    types.SignalFunc
	log         *logger.Logger
	concurrency int
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// New creates a Runner. config is the YAML every simulator is
// initialized with; signalFn is shared across symbols and must be safe
// for concurrent calls (pure functions are).
func New(factory SimulatorFactory, config string, signalFn types.SignalFunc, log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		factory:     factory,
		config:      config,
		signalFn:    signalFn,
		log:         log,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run simulates every symbol in data. A failed symbol is reported in its
// SymbolResult; Run itself only returns an error when the context is
// canceled. Results come back in no particular order.
func (r *Runner) Run(ctx context.Context, data map[string][]types.Bar) (*Report, error) {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.concurrency)

	var (
		mu      sync.Mutex
		results []SymbolResult
	)

	for symbol, bars := range data {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}

			result, err := r.runOne(groupCtx, symbol, bars)

			mu.Lock()
			results = append(results, SymbolResult{Symbol: symbol, Result: result, Err: err})
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Results: results}

	for _, res := range report.Results {
		if res.Err != nil {
			report.Failed++

			r.log.Warn("symbol run failed",
				zap.String("symbol", res.Symbol),
				zap.Error(res.Err),
			)
		} else {
			report.Succeeded++
		}
	}

	r.log.Info("batch finished",
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

func (r *Runner) runOne(ctx context.Context, symbol string, bars []types.Bar) (*types.Result, error) {
	sim := r.factory()

	if err := sim.Initialize(r.config); err != nil {
		return nil, err
	}

	defer sim.Cleanup()

	if err := sim.SetSignalFunc(r.signalFn); err != nil {
		return nil, err
	}

	return sim.Run(ctx, symbol, bars, engine.LifecycleCallbacks{})
}
