package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	ledger *Ledger
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.ledger = New()
}

func (suite *LedgerTestSuite) openAt(symbol string, price int64) {
	suite.ledger.Open(symbol, 100, decimal.NewFromInt(price), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "trade-1")
}

func (suite *LedgerTestSuite) TestOpenAndGet() {
	suite.openAt("005930", 70000)

	suite.True(suite.ledger.Has("005930"))
	suite.Equal(1, suite.ledger.Count())

	position := suite.ledger.Get("005930")
	suite.True(position.IsSome())
	suite.Equal(int64(100), position.Unwrap().Quantity)
	// The high-water mark starts at the entry price.
	suite.True(position.Unwrap().HighestPrice.Equal(decimal.NewFromInt(70000)))
}

func (suite *LedgerTestSuite) TestCloseIsIdempotent() {
	suite.openAt("005930", 70000)

	first := suite.ledger.Close("005930")
	suite.True(first.IsSome())
	suite.False(suite.ledger.Has("005930"))

	second := suite.ledger.Close("005930")
	suite.True(second.IsNone())
}

func (suite *LedgerTestSuite) TestAtMostOnePositionPerSymbol() {
	suite.openAt("005930", 70000)
	suite.openAt("005930", 80000)

	suite.Equal(1, suite.ledger.Count())
	// The re-open replaced the prior entry.
	suite.True(suite.ledger.Get("005930").Unwrap().EntryPrice.Equal(decimal.NewFromInt(80000)))
}

func (suite *LedgerTestSuite) TestMarkToMarket() {
	suite.openAt("005930", 70000)
	suite.openAt("000660", 100000)

	value := suite.ledger.MarkToMarket(map[string]decimal.Decimal{
		"005930": decimal.NewFromInt(71000),
		"000660": decimal.NewFromInt(99000),
	})

	suite.True(value.Equal(decimal.NewFromInt(100*71000+100*99000)), value.String())
}

func (suite *LedgerTestSuite) TestMarkToMarketMissingQuoteUsesEntry() {
	suite.openAt("005930", 70000)

	value := suite.ledger.MarkToMarket(map[string]decimal.Decimal{})

	suite.True(value.Equal(decimal.NewFromInt(7_000_000)))
}

func (suite *LedgerTestSuite) TestHighWaterMarkIsMonotone() {
	suite.openAt("005930", 70000)

	suite.ledger.MarkToMarket(map[string]decimal.Decimal{"005930": decimal.NewFromInt(80000)})
	suite.ledger.MarkToMarket(map[string]decimal.Decimal{"005930": decimal.NewFromInt(75000)})

	position := suite.ledger.Get("005930").Unwrap()
	suite.True(position.HighestPrice.Equal(decimal.NewFromInt(80000)))
}

func (suite *LedgerTestSuite) TestCheckStopLoss() {
	suite.openAt("005930", 70000)

	// -5% of 70,000 is 66,500.
	suite.False(suite.ledger.CheckStopLoss("005930", decimal.NewFromInt(66501), -0.05))
	suite.True(suite.ledger.CheckStopLoss("005930", decimal.NewFromInt(66500), -0.05))
	suite.True(suite.ledger.CheckStopLoss("005930", decimal.NewFromInt(60000), -0.05))
}

func (suite *LedgerTestSuite) TestCheckTakeProfit() {
	suite.openAt("005930", 70000)

	// +10% of 70,000 is 77,000.
	suite.False(suite.ledger.CheckTakeProfit("005930", decimal.NewFromInt(76999), 0.1))
	suite.True(suite.ledger.CheckTakeProfit("005930", decimal.NewFromInt(77000), 0.1))
}

func (suite *LedgerTestSuite) TestCheckTrailingStop() {
	suite.openAt("005930", 70000)
	suite.ledger.MarkToMarket(map[string]decimal.Decimal{"005930": decimal.NewFromInt(80000)})

	// 5% below the 80,000 high-water mark is 76,000; the position is
	// still above its entry there.
	suite.False(suite.ledger.CheckTrailingStop("005930", decimal.NewFromInt(76001), 0.05))
	suite.True(suite.ledger.CheckTrailingStop("005930", decimal.NewFromInt(76000), 0.05))
}

func (suite *LedgerTestSuite) TestChecksOnAbsentSymbol() {
	price := decimal.NewFromInt(70000)

	suite.False(suite.ledger.CheckStopLoss("005930", price, -0.05))
	suite.False(suite.ledger.CheckTakeProfit("005930", price, 0.1))
	suite.False(suite.ledger.CheckTrailingStop("005930", price, 0.05))
}

func (suite *LedgerTestSuite) TestClearAll() {
	suite.openAt("005930", 70000)
	suite.openAt("000660", 100000)

	suite.ledger.ClearAll()

	suite.Equal(0, suite.ledger.Count())
	suite.False(suite.ledger.Has("005930"))
}
