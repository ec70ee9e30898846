package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"

	"github.com/isinthesky/envelope-backtest/internal/backtest/costmodel"
	"github.com/isinthesky/envelope-backtest/internal/types"
	"github.com/isinthesky/envelope-backtest/pkg/errors"
)

const (
	// DefaultInitialCapital is 10,000,000 KRW.
	DefaultInitialCapital = 10_000_000
	// MinInitialCapital is the smallest accepted starting capital.
	MinInitialCapital = 100_000
	// DefaultAllocationRatio is the fraction of cash a buy commits.
	DefaultAllocationRatio = 0.1
	// DefaultRiskFreeRate is the annual risk-free rate in percent used
	// for Sharpe and Sortino.
	DefaultRiskFreeRate = 3.0
)

// RiskConfig holds the automatic exit rules checked at the start of each
// day while a position is held. Each rule is independently toggled; a
// ratio left None with its toggle on fails validation.
type RiskConfig struct {
	UseStopLoss bool `yaml:"use_stop_loss" json:"use_stop_loss" jsonschema:"title=Use Stop Loss"`
	// StopLossRatio is the fractional loss that forces an exit, e.g.
	// -0.05 for a 5% loss.
	StopLossRatio optional.Option[float64] `yaml:"stop_loss_ratio" json:"stop_loss_ratio" jsonschema:"title=Stop Loss Ratio,minimum=-0.2,maximum=0"`

	UseTakeProfit bool `yaml:"use_take_profit" json:"use_take_profit" jsonschema:"title=Use Take Profit"`
	// TakeProfitRatio is the fractional gain that locks in an exit.
	TakeProfitRatio optional.Option[float64] `yaml:"take_profit_ratio" json:"take_profit_ratio" jsonschema:"title=Take Profit Ratio,minimum=0,maximum=1"`

	UseTrailingStop bool `yaml:"use_trailing_stop" json:"use_trailing_stop" jsonschema:"title=Use Trailing Stop"`
	// TrailingStopRatio is the fractional pullback from the position's
	// highest seen price that forces an exit.
	TrailingStopRatio optional.Option[float64] `yaml:"trailing_stop_ratio" json:"trailing_stop_ratio" jsonschema:"title=Trailing Stop Ratio,minimum=0.01,maximum=0.2"`

	// UseReverseSignalExit lets a sell signal close an open position.
	// When false, only the risk rules above can exit.
	UseReverseSignalExit bool `yaml:"use_reverse_signal_exit" json:"use_reverse_signal_exit" jsonschema:"title=Use Reverse Signal Exit"`
}

// SimulatorV1Config is the full configuration of SimulatorV1.
type SimulatorV1Config struct {
	InitialCapital  float64          `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital in KRW,minimum=100000" validate:"gte=100000"`
	Cost            costmodel.Config `yaml:"cost" json:"cost"`
	AllocationRatio float64          `yaml:"allocation_ratio" json:"allocation_ratio" jsonschema:"title=Allocation Ratio,description=Fraction of available cash committed per buy,minimum=0.01,maximum=1" validate:"gte=0.01,lte=1"`
	Risk            RiskConfig       `yaml:"risk" json:"risk"`
	RiskFreeRate    float64          `yaml:"risk_free_rate" json:"risk_free_rate" jsonschema:"title=Risk Free Rate,description=Annual risk-free rate in percent,minimum=0" validate:"gte=0"`

	// StartTime and EndTime bound the simulated period. When None the
	// bar series' own first and last dates are used.
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time"`
}

// UnmarshalYAML implements custom unmarshaling for SimulatorV1Config so
// absent optional keys decode to None instead of zero values.
func (c *SimulatorV1Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type riskYAML struct {
		UseStopLoss          bool     `yaml:"use_stop_loss"`
		StopLossRatio        *float64 `yaml:"stop_loss_ratio"`
		UseTakeProfit        bool     `yaml:"use_take_profit"`
		TakeProfitRatio      *float64 `yaml:"take_profit_ratio"`
		UseTrailingStop      bool     `yaml:"use_trailing_stop"`
		TrailingStopRatio    *float64 `yaml:"trailing_stop_ratio"`
		UseReverseSignalExit *bool    `yaml:"use_reverse_signal_exit"`
	}

	type configYAML struct {
		InitialCapital  *float64         `yaml:"initial_capital"`
		Cost            costmodel.Config `yaml:"cost"`
		AllocationRatio *float64         `yaml:"allocation_ratio"`
		Risk            riskYAML         `yaml:"risk"`
		RiskFreeRate    *float64         `yaml:"risk_free_rate"`
		StartTime       *time.Time       `yaml:"start_time"`
		EndTime         *time.Time       `yaml:"end_time"`
	}

	config := configYAML{Cost: costmodel.DefaultConfig()}
	if err := unmarshal(&config); err != nil {
		return err
	}

	defaults := EmptyConfig()

	c.InitialCapital = defaults.InitialCapital
	if config.InitialCapital != nil {
		c.InitialCapital = *config.InitialCapital
	}

	c.Cost = config.Cost

	c.AllocationRatio = defaults.AllocationRatio
	if config.AllocationRatio != nil {
		c.AllocationRatio = *config.AllocationRatio
	}

	c.RiskFreeRate = defaults.RiskFreeRate
	if config.RiskFreeRate != nil {
		c.RiskFreeRate = *config.RiskFreeRate
	}

	c.Risk = RiskConfig{
		UseStopLoss:          config.Risk.UseStopLoss,
		StopLossRatio:        optional.FromNillable(config.Risk.StopLossRatio),
		UseTakeProfit:        config.Risk.UseTakeProfit,
		TakeProfitRatio:      optional.FromNillable(config.Risk.TakeProfitRatio),
		UseTrailingStop:      config.Risk.UseTrailingStop,
		TrailingStopRatio:    optional.FromNillable(config.Risk.TrailingStopRatio),
		UseReverseSignalExit: true,
	}
	if config.Risk.UseReverseSignalExit != nil {
		c.Risk.UseReverseSignalExit = *config.Risk.UseReverseSignalExit
	}

	c.StartTime = optional.FromNillable(config.StartTime)
	c.EndTime = optional.FromNillable(config.EndTime)

	return nil
}

// Validate checks field ranges and the coupling between risk toggles and
// their ratios.
func (c *SimulatorV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "config failed validation", err)
	}

	if err := validateRatio(c.Risk.UseStopLoss, c.Risk.StopLossRatio, "stop_loss_ratio", -0.2, 0); err != nil {
		return err
	}

	if err := validateRatio(c.Risk.UseTakeProfit, c.Risk.TakeProfitRatio, "take_profit_ratio", 0, 1); err != nil {
		return err
	}

	if err := validateRatio(c.Risk.UseTrailingStop, c.Risk.TrailingStopRatio, "trailing_stop_ratio", 0.01, 0.2); err != nil {
		return err
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidDateRange, "end_time is before start_time")
	}

	return nil
}

func validateRatio(enabled bool, ratio optional.Option[float64], name string, min, max float64) error {
	if !enabled {
		return nil
	}

	if ratio.IsNone() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "%s is required when its rule is enabled", name)
	}

	v := ratio.Unwrap()
	if v < min || v > max {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "%s %v outside [%v, %v]", name, v, min, max)
	}

	return nil
}

// GenerateSchema generates a JSON schema for the SimulatorV1Config.
func (c *SimulatorV1Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t.String() {
			case "optional.Option[time.Time]":
				return &jsonschema.Schema{Type: "string", Format: "date-time"}
			case "optional.Option[float64]":
				return &jsonschema.Schema{Type: "number"}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "simulator-v1-config"
	schema.Description = "Configuration schema for SimulatorV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *SimulatorV1Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// EmptyConfig returns a SimulatorV1Config with the shipped defaults: all
// cost legs on, no risk rules, reverse-signal exits enabled.
func EmptyConfig() SimulatorV1Config {
	return SimulatorV1Config{
		InitialCapital:  DefaultInitialCapital,
		Cost:            costmodel.DefaultConfig(),
		AllocationRatio: DefaultAllocationRatio,
		Risk: RiskConfig{
			StopLossRatio:        optional.None[float64](),
			TakeProfitRatio:      optional.None[float64](),
			TrailingStopRatio:    optional.None[float64](),
			UseReverseSignalExit: true,
		},
		RiskFreeRate: DefaultRiskFreeRate,
		StartTime:    optional.None[time.Time](),
		EndTime:      optional.None[time.Time](),
	}
}

// TestConfig returns a config with every risk rule armed, for tests.
func TestConfig(startTime, endTime time.Time) SimulatorV1Config {
	cfg := EmptyConfig()
	cfg.Risk = RiskConfig{
		UseStopLoss:          true,
		StopLossRatio:        optional.Some(-0.05),
		UseTakeProfit:        true,
		TakeProfitRatio:      optional.Some(0.1),
		UseTrailingStop:      true,
		TrailingStopRatio:    optional.Some(0.05),
		UseReverseSignalExit: true,
	}
	cfg.StartTime = optional.Some(startTime)
	cfg.EndTime = optional.Some(endTime)

	return cfg
}

// filterBars clips a bar series to the configured period. None bounds
// leave that side open.
func (c *SimulatorV1Config) filterBars(bars []types.Bar) []types.Bar {
	start := 0
	end := len(bars)

	if c.StartTime.IsSome() {
		st := c.StartTime.Unwrap()
		for start < end && bars[start].Time.Before(st) {
			start++
		}
	}

	if c.EndTime.IsSome() {
		et := c.EndTime.Unwrap()
		for end > start && bars[end-1].Time.After(et) {
			end--
		}
	}

	return bars[start:end]
}
