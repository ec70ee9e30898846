package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/isinthesky/envelope-backtest/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfigDefaults() {
	cfg := EmptyConfig()

	suite.InDelta(float64(DefaultInitialCapital), cfg.InitialCapital, 1e-9)
	suite.InDelta(DefaultAllocationRatio, cfg.AllocationRatio, 1e-9)
	suite.InDelta(DefaultRiskFreeRate, cfg.RiskFreeRate, 1e-9)
	suite.InDelta(0.00015, cfg.Cost.CommissionRate, 1e-12)
	suite.InDelta(0.0023, cfg.Cost.TaxRate, 1e-12)
	suite.InDelta(0.0005, cfg.Cost.SlippageRate, 1e-12)
	suite.True(cfg.Cost.UseCommission)
	suite.True(cfg.Cost.UseTax)
	suite.True(cfg.Cost.UseSlippage)
	suite.False(cfg.Risk.UseStopLoss)
	suite.True(cfg.Risk.UseReverseSignalExit)
	suite.True(cfg.Risk.StopLossRatio.IsNone())
	suite.True(cfg.StartTime.IsNone())
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalFullConfig() {
	content := `
initial_capital: 5000000
allocation_ratio: 0.2
cost:
  commission_rate: 0.001
  use_slippage: false
risk:
  use_stop_loss: true
  stop_loss_ratio: -0.03
  use_take_profit: true
  take_profit_ratio: 0.15
  use_trailing_stop: true
  trailing_stop_ratio: 0.05
  use_reverse_signal_exit: false
risk_free_rate: 2.5
start_time: 2024-01-02T00:00:00Z
end_time: 2024-06-28T00:00:00Z
`

	var cfg SimulatorV1Config
	suite.NoError(yaml.Unmarshal([]byte(content), &cfg))

	suite.InDelta(5_000_000, cfg.InitialCapital, 1e-9)
	suite.InDelta(0.2, cfg.AllocationRatio, 1e-9)
	suite.InDelta(0.001, cfg.Cost.CommissionRate, 1e-12)
	// Keys absent from the cost section keep their defaults.
	suite.InDelta(0.0023, cfg.Cost.TaxRate, 1e-12)
	suite.False(cfg.Cost.UseSlippage)
	suite.True(cfg.Cost.UseCommission)

	suite.True(cfg.Risk.UseStopLoss)
	suite.InDelta(-0.03, cfg.Risk.StopLossRatio.Unwrap(), 1e-9)
	suite.InDelta(0.15, cfg.Risk.TakeProfitRatio.Unwrap(), 1e-9)
	suite.InDelta(0.05, cfg.Risk.TrailingStopRatio.Unwrap(), 1e-9)
	suite.False(cfg.Risk.UseReverseSignalExit)

	suite.InDelta(2.5, cfg.RiskFreeRate, 1e-9)
	suite.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), cfg.StartTime.Unwrap())
	suite.NoError(cfg.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalAppliesDefaults() {
	var cfg SimulatorV1Config
	suite.NoError(yaml.Unmarshal([]byte(`allocation_ratio: 0.5`), &cfg))

	suite.InDelta(float64(DefaultInitialCapital), cfg.InitialCapital, 1e-9)
	suite.InDelta(0.5, cfg.AllocationRatio, 1e-9)
	suite.True(cfg.Risk.UseReverseSignalExit)
	suite.True(cfg.Risk.TakeProfitRatio.IsNone())
}

func (suite *ConfigTestSuite) TestValidateRejectsLowCapital() {
	cfg := EmptyConfig()
	cfg.InitialCapital = 50_000

	err := cfg.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidateRequiresRatioWhenEnabled() {
	cfg := EmptyConfig()
	cfg.Risk.UseStopLoss = true

	err := cfg.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidateRejectsOutOfRangeRatios() {
	cases := []string{
		`risk: {use_stop_loss: true, stop_loss_ratio: -0.5}`,
		`risk: {use_stop_loss: true, stop_loss_ratio: 0.1}`,
		`risk: {use_take_profit: true, take_profit_ratio: 1.5}`,
		`risk: {use_trailing_stop: true, trailing_stop_ratio: 0.5}`,
		`risk: {use_trailing_stop: true, trailing_stop_ratio: 0.001}`,
	}

	for _, content := range cases {
		var cfg SimulatorV1Config
		suite.NoError(yaml.Unmarshal([]byte(content), &cfg))

		err := cfg.Validate()
		suite.Error(err, content)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration), content)
	}
}

func (suite *ConfigTestSuite) TestValidateRejectsInvertedPeriod() {
	cfg := TestConfig(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	)

	err := cfg.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidDateRange))
}

func (suite *ConfigTestSuite) TestTestConfigIsValid() {
	cfg := TestConfig(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	)

	suite.NoError(cfg.Validate())
	suite.True(cfg.Risk.UseStopLoss)
	suite.True(cfg.Risk.UseTakeProfit)
	suite.True(cfg.Risk.UseTrailingStop)
}

func (suite *ConfigTestSuite) TestFilterBarsClipsInclusively() {
	cfg := EmptyConfig()

	bars := dailyBars(100, 101, 102, 103, 104)

	suite.Len(cfg.filterBars(bars), 5)

	cfg.StartTime = optional.Some(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	cfg.EndTime = optional.Some(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))

	clipped := cfg.filterBars(bars)
	suite.Require().Len(clipped, 3)
	suite.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), clipped[0].Time)
	suite.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), clipped[2].Time)
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	cfg := EmptyConfig()

	schema, err := cfg.GenerateSchemaJSON()
	suite.NoError(err)
	suite.Contains(schema, "initial_capital")
	suite.Contains(schema, "allocation_ratio")
	suite.Contains(schema, "use_reverse_signal_exit")
}
