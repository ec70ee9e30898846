package engine

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/isinthesky/envelope-backtest/internal/logger"
	"github.com/isinthesky/envelope-backtest/internal/types"
	"github.com/isinthesky/envelope-backtest/pkg/errors"
)

// RunRecorder persists finished runs into an in-memory DuckDB so results
// can be queried with SQL and exported as Parquet. One recorder can hold
// multiple runs, keyed by run ID.
type RunRecorder struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewRunRecorder(logger *logger.Logger) (*RunRecorder, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("failed to open recorder database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to open database", err)
	}

	return &RunRecorder{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades and daily_stats tables.
func (r *RunRecorder) Initialize() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			trade_id TEXT,
			symbol TEXT,
			side TEXT,
			entry_date TIMESTAMP,
			entry_price DOUBLE,
			exit_date TIMESTAMP,
			exit_price DOUBLE,
			quantity BIGINT,
			commission DOUBLE,
			tax DOUBLE,
			profit DOUBLE,
			profit_rate DOUBLE,
			holding_days INTEGER,
			exit_reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to create trades table", err)
	}

	_, err = r.db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_stats (
			run_id TEXT,
			date TIMESTAMP,
			equity DOUBLE,
			cash DOUBLE,
			position_value DOUBLE,
			daily_return DOUBLE,
			cumulative_return DOUBLE,
			drawdown DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderInitFailed, "failed to create daily_stats table", err)
	}

	return nil
}

// RecordRun inserts every trade and daily snapshot of a finished run in
// one transaction.
func (r *RunRecorder) RecordRun(runID string, result *types.Result) error {
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to begin transaction", err)
	}

	for _, trade := range result.Trades {
		insertQuery := r.sq.
			Insert("trades").
			Columns(
				"run_id", "trade_id", "symbol", "side", "entry_date", "entry_price",
				"exit_date", "exit_price", "quantity", "commission", "tax",
				"profit", "profit_rate", "holding_days", "exit_reason",
			).
			Values(
				runID, trade.ID, trade.Symbol, string(trade.Side), trade.EntryDate,
				trade.EntryPrice.InexactFloat64(),
				nullableTime(trade.ExitDate), nullableDecimalFloat(trade.ExitPrice),
				trade.Quantity, trade.Commission.InexactFloat64(), trade.Tax.InexactFloat64(),
				nullableDecimalFloat(trade.Profit), nullablePrimitive(trade.ProfitRate),
				nullablePrimitive(trade.HoldingDays), nullableExitReason(trade.ExitReason),
			).
			RunWith(tx)

		if _, err := insertQuery.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to insert trade", err)
		}
	}

	for _, snapshot := range result.DailyStats {
		insertQuery := r.sq.
			Insert("daily_stats").
			Columns(
				"run_id", "date", "equity", "cash", "position_value",
				"daily_return", "cumulative_return", "drawdown",
			).
			Values(
				runID, snapshot.Date, snapshot.Equity.InexactFloat64(),
				snapshot.Cash.InexactFloat64(), snapshot.PositionValue.InexactFloat64(),
				snapshot.DailyReturn, snapshot.CumulativeReturn, snapshot.Drawdown,
			).
			RunWith(tx)

		if _, err := insertQuery.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to insert daily snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to commit run", err)
	}

	return nil
}

// RunStats holds SQL-side aggregates over one recorded run.
type RunStats struct {
	TotalTrades     int
	ClosedTrades    int
	TotalCommission float64
	TotalTax        float64
	RealizedProfit  float64
}

// Stats aggregates the recorded trades of one run.
func (r *RunRecorder) Stats(runID string) (RunStats, error) {
	query := r.sq.
		Select(
			"COUNT(*)",
			"COUNT(exit_date)",
			"COALESCE(SUM(commission), 0)",
			"COALESCE(SUM(tax), 0)",
			"COALESCE(SUM(profit), 0)",
		).
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		RunWith(r.db)

	var stats RunStats

	err := query.QueryRow().Scan(
		&stats.TotalTrades,
		&stats.ClosedTrades,
		&stats.TotalCommission,
		&stats.TotalTax,
		&stats.RealizedProfit,
	)
	if err != nil {
		return RunStats{}, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "failed to aggregate trades", err)
	}

	return stats, nil
}

// ExitReasonCounts returns how many closed trades ended per exit reason.
func (r *RunRecorder) ExitReasonCounts(runID string) (map[types.ExitReason]int, error) {
	query := r.sq.
		Select("exit_reason", "COUNT(*)").
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		Where("exit_reason IS NOT NULL").
		GroupBy("exit_reason").
		RunWith(r.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "failed to count exit reasons", err)
	}
	defer rows.Close()

	counts := make(map[types.ExitReason]int)

	for rows.Next() {
		var (
			reason string
			count  int
		)

		if err := rows.Scan(&reason, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "failed to scan exit reason row", err)
		}

		counts[types.ExitReason(reason)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRecorderQueryFailed, "failed to iterate exit reasons", err)
	}

	return counts, nil
}

// Export writes one run's trades and daily stats as Parquet files into
// folder. Squirrel has no COPY support, so the statements are raw SQL.
func (r *RunRecorder) Export(runID string, folder string) error {
	tradesPath := filepath.Join(folder, "trades.parquet")

	// COPY does not take bound parameters; runID is a UUID generated by
	// the simulator, never user input.
	_, err := r.db.Exec(fmt.Sprintf(
		`COPY (SELECT * FROM trades WHERE run_id = '%s') TO '%s' (FORMAT PARQUET)`, runID, tradesPath,
	))
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to export trades", err)
	}

	statsPath := filepath.Join(folder, "daily_stats.parquet")

	_, err = r.db.Exec(fmt.Sprintf(
		`COPY (SELECT * FROM daily_stats WHERE run_id = '%s' ORDER BY date) TO '%s' (FORMAT PARQUET)`, runID, statsPath,
	))
	if err != nil {
		return errors.Wrap(errors.ErrCodeRecorderWriteFailed, "failed to export daily stats", err)
	}

	return nil
}

// Close releases the underlying database.
func (r *RunRecorder) Close() error {
	return r.db.Close()
}

func nullableTime(opt optional.Option[time.Time]) interface{} {
	if opt.IsNone() {
		return nil
	}

	return opt.Unwrap()
}

func nullableDecimalFloat(opt optional.Option[decimal.Decimal]) interface{} {
	if opt.IsNone() {
		return nil
	}

	return opt.Unwrap().InexactFloat64()
}

func nullablePrimitive[T any](opt optional.Option[T]) interface{} {
	if opt.IsNone() {
		return nil
	}

	return opt.Unwrap()
}

func nullableExitReason(opt optional.Option[types.ExitReason]) interface{} {
	if opt.IsNone() {
		return nil
	}

	return string(opt.Unwrap())
}
