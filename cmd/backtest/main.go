package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/isinthesky/envelope-backtest/internal/backtest/engine"
	engine_v1 "github.com/isinthesky/envelope-backtest/internal/backtest/engine/engine_v1"
	"github.com/isinthesky/envelope-backtest/internal/backtest/runner"
	"github.com/isinthesky/envelope-backtest/internal/logger"
	"github.com/isinthesky/envelope-backtest/internal/marketdata"
	"github.com/isinthesky/envelope-backtest/internal/strategy"
	"github.com/isinthesky/envelope-backtest/internal/types"
	"github.com/isinthesky/envelope-backtest/pkg/utils"
)

// appConfig is the on-disk config: the simulation section is passed
// through to the simulator verbatim, the strategy section configures the
// bundled signal generator.
type appConfig struct {
	Simulation yaml.Node                        `yaml:"simulation"`
	Strategy   strategy.BollingerEnvelopeConfig `yaml:"strategy"`
}

func loadAppConfig(path string) (simulationYAML string, strategyCfg strategy.BollingerEnvelopeConfig, err error) {
	strategyCfg = strategy.DefaultBollingerEnvelopeConfig()

	if path == "" {
		return "", strategyCfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", strategyCfg, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg appConfig

	cfg.Strategy = strategyCfg
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return "", strategyCfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if !cfg.Simulation.IsZero() {
		simBytes, err := yaml.Marshal(&cfg.Simulation)
		if err != nil {
			return "", strategyCfg, fmt.Errorf("failed to re-encode simulation config: %w", err)
		}

		simulationYAML = string(simBytes)
	}

	return simulationYAML, cfg.Strategy, nil
}

// symbolFromPath derives the symbol from the data file name, e.g.
// data/005930.csv -> 005930.
func symbolFromPath(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataGlob := cmd.String("data")
	symbolFlag := cmd.String("symbol")
	benchmarkPath := cmd.String("benchmark")
	outputFolder := cmd.String("output")

	simulationYAML, strategyCfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(dataGlob)
	if err != nil {
		return fmt.Errorf("bad data pattern: %w", err)
	}

	if len(files) == 0 {
		return fmt.Errorf("no data files match %s", dataGlob)
	}

	appLog, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer appLog.Sync()

	loader, err := marketdata.NewLoader(appLog)
	if err != nil {
		return err
	}
	defer loader.Close()

	var benchmark []types.Bar

	if benchmarkPath != "" {
		benchmark, err = loader.Load(benchmarkPath)
		if err != nil {
			return fmt.Errorf("failed to load benchmark: %w", err)
		}
	}

	signalFn := strategy.NewBollingerEnvelope(strategyCfg)

	if len(files) == 1 {
		symbol := symbolFlag
		if symbol == "" {
			symbol = symbolFromPath(files[0])
		}

		return runSingle(ctx, loader, files[0], symbol, simulationYAML, signalFn, benchmark, outputFolder)
	}

	return runBatch(ctx, loader, files, simulationYAML, signalFn, appLog)
}

func runSingle(ctx context.Context, loader *marketdata.Loader, file, symbol, simulationYAML string, signalFn types.SignalFunc, benchmark []types.Bar, outputFolder string) error {
	bars, err := loader.Load(file)
	if err != nil {
		return err
	}

	summary := marketdata.Summarize(bars)
	fmt.Printf("%s: %d bars, %s .. %s\n",
		symbol, summary.Rows,
		summary.StartDate.Format("2006-01-02"), summary.EndDate.Format("2006-01-02"))

	sim := engine_v1.NewSimulatorV1()
	if err := sim.Initialize(simulationYAML); err != nil {
		return err
	}
	defer sim.Cleanup()

	if err := sim.SetSignalFunc(signalFn); err != nil {
		return err
	}

	if len(benchmark) > 0 {
		sim.SetBenchmark(benchmark)
	}

	if outputFolder != "" {
		if err := sim.SetResultsFolder(outputFolder); err != nil {
			return err
		}
	}

	var bar *progressbar.ProgressBar

	onStart := engine.OnRunStartCallback(func(runID, sym string, totalDays int) error {
		bar = progressbar.Default(int64(totalDays))
		bar.Describe(fmt.Sprintf("Simulating %s", sym))

		return nil
	})
	onDay := engine.OnDayCallback(func(current, total int) error {
		return bar.Add(1)
	})

	result, err := sim.Run(ctx, symbol, bars, engine.LifecycleCallbacks{
		OnRunStart: &onStart,
		OnDay:      &onDay,
	})
	if err != nil {
		return err
	}

	printSummary(result)

	return nil
}

func runBatch(ctx context.Context, loader *marketdata.Loader, files []string, simulationYAML string, signalFn types.SignalFunc, appLog *logger.Logger) error {
	data := make(map[string][]types.Bar, len(files))

	for _, file := range files {
		bars, err := loader.Load(file)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}

		data[symbolFromPath(file)] = bars
	}

	batch := runner.New(engine_v1.NewSimulatorV1, simulationYAML, signalFn, appLog)

	report, err := batch.Run(ctx, data)
	if err != nil {
		return err
	}

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Printf("%s: FAILED (%v)\n", res.Symbol, res.Err)

			continue
		}

		fmt.Printf("%s: return %.2f%%, mdd %.2f%%, trades %d\n",
			res.Symbol, res.Result.TotalReturn, res.Result.MDD, res.Result.TotalTrades)
	}

	fmt.Printf("%d succeeded, %d failed\n", report.Succeeded, report.Failed)

	return nil
}

func printSummary(result *types.Result) {
	fmt.Printf("\nPeriod:            %s .. %s\n",
		result.StartDate.Format("2006-01-02"), result.EndDate.Format("2006-01-02"))
	fmt.Printf("Initial capital:   %s\n", result.InitialCapital.StringFixed(0))
	fmt.Printf("Final capital:     %s\n", result.FinalCapital.StringFixed(0))
	fmt.Printf("Total return:      %.2f%%\n", result.TotalReturn)
	fmt.Printf("Annualized return: %.2f%%\n", result.AnnualizedReturn)
	fmt.Printf("MDD:               %.2f%%\n", result.MDD)
	fmt.Printf("Volatility:        %.2f%%\n", result.Volatility)
	fmt.Printf("Sharpe ratio:      %.2f\n", result.SharpeRatio)
	fmt.Printf("Trades:            %d (win rate %.1f%%)\n", result.TotalTrades, result.WinRate)

	if result.BenchmarkReturn.IsSome() {
		fmt.Printf("Benchmark return:  %.2f%%\n", result.BenchmarkReturn.Unwrap())
		fmt.Printf("Alpha:             %.2f\n", result.Alpha.Unwrap())
		fmt.Printf("Beta:              %.2f\n", result.Beta.Unwrap())
	}
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	cfg := engine_v1.EmptyConfig()

	simulationSchema, err := cfg.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	strategySchema, err := utils.GetSchemaFromConfig(strategy.DefaultBollingerEnvelopeConfig())
	if err != nil {
		return err
	}

	fmt.Println(simulationSchema)
	fmt.Println(strategySchema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Simulate a trading strategy over historical daily bars",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a simulation over one or more data files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML config (simulation + strategy sections)",
					},
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "Data file or glob pattern (CSV or Parquet)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "symbol",
						Usage: "Symbol name; defaults to the data file name",
					},
					&cli.StringFlag{
						Name:    "benchmark",
						Aliases: []string{"b"},
						Usage:   "Benchmark data file for alpha/beta comparison",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Results folder for stats.yaml and Parquet exports",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the simulation config JSON schema",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
