// Package costmodel converts intended trades into cost-adjusted executions.
// All operations are pure: degenerate inputs produce zero quantities or zero
// costs instead of errors, so the simulator never branches on failures here.
package costmodel

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/isinthesky/envelope-backtest/internal/types"
)

// Config holds the transaction-cost rates and their independent toggles.
// Rates are fractional, e.g. 0.00015 for 0.015%.
type Config struct {
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=Commission charged on both sides as a fraction of the traded amount,minimum=0,maximum=0.01" validate:"gte=0,lte=0.01"`
	TaxRate        float64 `yaml:"tax_rate" json:"tax_rate" jsonschema:"title=Tax Rate,description=Transaction tax charged on sells as a fraction of the sale amount,minimum=0,maximum=0.01" validate:"gte=0,lte=0.01"`
	SlippageRate   float64 `yaml:"slippage_rate" json:"slippage_rate" jsonschema:"title=Slippage Rate,description=Adverse price movement applied to every fill as a fraction of the price,minimum=0,maximum=0.01" validate:"gte=0,lte=0.01"`
	UseCommission  bool    `yaml:"use_commission" json:"use_commission" jsonschema:"title=Use Commission"`
	UseTax         bool    `yaml:"use_tax" json:"use_tax" jsonschema:"title=Use Tax"`
	UseSlippage    bool    `yaml:"use_slippage" json:"use_slippage" jsonschema:"title=Use Slippage"`
}

// DefaultConfig returns the Korean-market cost rates the simulator ships
// with, all toggles enabled.
func DefaultConfig() Config {
	return Config{
		CommissionRate: 0.00015,
		TaxRate:        0.0023,
		SlippageRate:   0.0005,
		UseCommission:  true,
		UseTax:         true,
		UseSlippage:    true,
	}
}

// CostModel applies slippage, commission and transaction tax to orders.
type CostModel struct {
	commissionRate decimal.Decimal
	taxRate        decimal.Decimal
	slippageRate   decimal.Decimal
	useCommission  bool
	useTax         bool
	useSlippage    bool
}

func New(cfg Config) *CostModel {
	return &CostModel{
		commissionRate: decimal.NewFromFloat(cfg.CommissionRate),
		taxRate:        decimal.NewFromFloat(cfg.TaxRate),
		slippageRate:   decimal.NewFromFloat(cfg.SlippageRate),
		useCommission:  cfg.UseCommission,
		useTax:         cfg.UseTax,
		useSlippage:    cfg.UseSlippage,
	}
}

// ExecuteBuy fills a buy at the slippage-adjusted price and returns the open
// trade together with the total cash outlay (purchase amount plus buy-side
// commission). No tax applies to buys.
func (c *CostModel) ExecuteBuy(symbol string, price decimal.Decimal, quantity int64, date time.Time) (types.Trade, decimal.Decimal) {
	executedPrice := price
	if c.useSlippage {
		executedPrice = price.Mul(decimal.NewFromInt(1).Add(c.slippageRate))
	}

	purchaseAmount := executedPrice.Mul(decimal.NewFromInt(quantity))

	commission := decimal.Zero
	if c.useCommission {
		commission = purchaseAmount.Mul(c.commissionRate)
	}

	totalCost := purchaseAmount.Add(commission)

	trade := types.Trade{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		Side:        types.SideBuy,
		EntryDate:   date,
		EntryPrice:  executedPrice,
		ExitDate:    optional.None[time.Time](),
		ExitPrice:   optional.None[decimal.Decimal](),
		Quantity:    quantity,
		Commission:  commission,
		Tax:         decimal.Zero,
		Profit:      optional.None[decimal.Decimal](),
		ProfitRate:  optional.None[float64](),
		HoldingDays: optional.None[int](),
		ExitReason:  optional.None[types.ExitReason](),
	}

	return trade, totalCost
}

// ExecuteSell closes an open trade at the slippage-adjusted price and returns
// the closed trade together with the net proceeds (sell amount minus
// sell-side commission and tax). The closed trade's Commission is the sum of
// both legs; Tax is the sell-side tax only.
func (c *CostModel) ExecuteSell(open types.Trade, price decimal.Decimal, date time.Time, reason types.ExitReason) (types.Trade, decimal.Decimal) {
	executedPrice := price
	if c.useSlippage {
		executedPrice = price.Mul(decimal.NewFromInt(1).Sub(c.slippageRate))
	}

	quantity := decimal.NewFromInt(open.Quantity)
	sellAmount := executedPrice.Mul(quantity)

	commission := decimal.Zero
	if c.useCommission {
		commission = sellAmount.Mul(c.commissionRate)
	}

	tax := decimal.Zero
	if c.useTax {
		tax = sellAmount.Mul(c.taxRate)
	}

	netProceeds := sellAmount.Sub(commission).Sub(tax)

	// The buy-side commission is already recorded on the open trade.
	purchaseCost := open.EntryPrice.Mul(quantity).Add(open.Commission)
	profit := netProceeds.Sub(purchaseCost)

	profitRate := 0.0
	if purchaseCost.IsPositive() {
		profitRate = profit.Div(purchaseCost).InexactFloat64() * 100
	}

	holdingDays := int(date.Sub(open.EntryDate).Hours() / 24)

	closed := open
	closed.ExitDate = optional.Some(date)
	closed.ExitPrice = optional.Some(executedPrice)
	closed.Commission = open.Commission.Add(commission)
	closed.Tax = tax
	closed.Profit = optional.Some(profit)
	closed.ProfitRate = optional.Some(profitRate)
	closed.HoldingDays = optional.Some(holdingDays)
	closed.ExitReason = optional.Some(reason)

	return closed, netProceeds
}

// PositionSize computes how many whole units the given cash allocation buys
// at the current price, reserving room for the buy-side commission when it
// is enabled. Returns 0 for a non-positive price.
func (c *CostModel) PositionSize(availableCash decimal.Decimal, allocationRatio float64, price decimal.Decimal) int64 {
	if !price.IsPositive() {
		return 0
	}

	targetAmount := availableCash.Mul(decimal.NewFromFloat(allocationRatio))

	if c.useCommission {
		targetAmount = targetAmount.Div(decimal.NewFromInt(1).Add(c.commissionRate))
	}

	return targetAmount.Div(price).IntPart()
}

// CanAfford checks whether availableCash covers the quantity at the quoted
// price plus the buy-side commission. Slippage is intentionally excluded;
// this mirrors the sizing arithmetic, not the fill arithmetic.
func (c *CostModel) CanAfford(availableCash decimal.Decimal, price decimal.Decimal, quantity int64) bool {
	purchaseAmount := price.Mul(decimal.NewFromInt(quantity))

	commission := decimal.Zero
	if c.useCommission {
		commission = purchaseAmount.Mul(c.commissionRate)
	}

	return availableCash.GreaterThanOrEqual(purchaseAmount.Add(commission))
}
