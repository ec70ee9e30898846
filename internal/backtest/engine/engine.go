package engine

import (
	"context"

	"github.com/isinthesky/envelope-backtest/internal/types"
)

// Lifecycle callback types for simulation phases.
// Callbacks returning an error abort the run.

// OnRunStartCallback is called once before the day loop begins. runID is
// the unique identifier generated for this run.
type OnRunStartCallback func(runID string, symbol string, totalDays int) error

// OnDayCallback is called after each simulated day.
type OnDayCallback func(current int, total int) error

// OnRunEndCallback is called when the run finishes (always called, also
// on failure).
type OnRunEndCallback func(runID string, err error)

// LifecycleCallbacks holds the optional run lifecycle hooks. Nil fields
// are skipped.
type LifecycleCallbacks struct {
	OnRunStart *OnRunStartCallback
	OnDay      *OnDayCallback
	OnRunEnd   *OnRunEndCallback
}

// Simulator replays a bar series against a signal function and produces
// a performance report.
type Simulator interface {
	// Initialize parses and validates a YAML configuration.
	Initialize(config string) error
	// SetSignalFunc installs the strategy evaluated each day.
	SetSignalFunc(fn types.SignalFunc) error
	// SetBenchmark installs an optional benchmark series. When set, the
	// result carries alpha, beta, tracking error and information ratio
	// against it.
	SetBenchmark(bars []types.Bar)
	// SetResultsFolder sets the directory run artifacts are written to.
	// Without it no files are produced.
	SetResultsFolder(folder string) error
	// Run executes the simulation over bars for symbol. The context can
	// cancel the day loop between days.
	Run(ctx context.Context, symbol string, bars []types.Bar, callbacks LifecycleCallbacks) (*types.Result, error)
	// Cleanup releases run-recording resources. The simulator cannot be
	// used after Cleanup.
	Cleanup() error
}
