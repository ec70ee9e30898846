// Package marketdata loads daily bar series from CSV or Parquet files
// through DuckDB and validates them against the simulator's data
// contract before any run sees them.
package marketdata

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/isinthesky/envelope-backtest/internal/logger"
	"github.com/isinthesky/envelope-backtest/internal/types"
	"github.com/isinthesky/envelope-backtest/pkg/errors"
)

// Loader reads bar files via DuckDB's read_csv and read_parquet.
type Loader struct {
	db     *sql.DB
	logger *logger.Logger
}

func NewLoader(logger *logger.Logger) (*Loader, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataLoadFailed, "failed to open database", err)
	}

	return &Loader{db: db, logger: logger}, nil
}

// Load reads the bars from path, ordered by time ascending. The file
// format is picked from the extension: .csv or .parquet.
func (l *Loader) Load(path string) ([]types.Bar, error) {
	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = "read_csv"
	case ".parquet":
		reader = "read_parquet"
	default:
		return nil, errors.Newf(errors.ErrCodeDataLoadFailed, "unsupported data file extension: %s", path)
	}

	// read_csv/read_parquet take the path as part of the statement, not
	// as a bound parameter.
	query := fmt.Sprintf(`
		SELECT time, open, high, low, close, volume
		FROM %s('%s')
		ORDER BY time
	`, reader, path)

	rows, err := l.db.Query(query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataLoadFailed, err, "failed to read %s", path)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var (
			t                         time.Time
			open, high, low, closePrc float64
			volume                    int64
		)

		if err := rows.Scan(&t, &open, &high, &low, &closePrc, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeMissingBarFields, "failed to scan bar row", err)
		}

		bars = append(bars, types.Bar{
			Time:   t,
			Open:   decimal.NewFromFloat(open),
			High:   decimal.NewFromFloat(high),
			Low:    decimal.NewFromFloat(low),
			Close:  decimal.NewFromFloat(closePrc),
			Volume: volume,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataLoadFailed, "failed to iterate bar rows", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no rows in %s", path)
	}

	if err := Validate(bars); err != nil {
		return nil, err
	}

	l.logger.Debug("loaded bars",
		zap.String("path", path),
		zap.Int("rows", len(bars)),
	)

	return bars, nil
}

// Close releases the underlying database.
func (l *Loader) Close() error {
	return l.db.Close()
}

// Validate enforces the bar contract: positive prices, low <= open and
// close <= high, non-negative volume, strictly ascending times.
func Validate(bars []types.Bar) error {
	for i, bar := range bars {
		if !bar.Open.IsPositive() || !bar.High.IsPositive() || !bar.Low.IsPositive() || !bar.Close.IsPositive() {
			return errors.Newf(errors.ErrCodeDataContract, "bar %d (%s): non-positive price", i, bar.Time.Format("2006-01-02"))
		}

		if bar.Low.GreaterThan(bar.Open) || bar.Low.GreaterThan(bar.Close) ||
			bar.Open.GreaterThan(bar.High) || bar.Close.GreaterThan(bar.High) {
			return errors.Newf(errors.ErrCodeDataContract, "bar %d (%s): open/close outside low/high range", i, bar.Time.Format("2006-01-02"))
		}

		if bar.Volume < 0 {
			return errors.Newf(errors.ErrCodeDataContract, "bar %d (%s): negative volume", i, bar.Time.Format("2006-01-02"))
		}

		if i > 0 && !bars[i-1].Time.Before(bar.Time) {
			return errors.Newf(errors.ErrCodeDataContract, "bar %d (%s): time not ascending", i, bar.Time.Format("2006-01-02"))
		}
	}

	return nil
}

// Summary describes a loaded bar series.
type Summary struct {
	Rows      int
	StartDate time.Time
	EndDate   time.Time
	MinClose  decimal.Decimal
	MaxClose  decimal.Decimal
	AvgVolume float64
}

// Summarize computes the series summary. An empty series yields a zero
// Summary.
func Summarize(bars []types.Bar) Summary {
	if len(bars) == 0 {
		return Summary{}
	}

	minClose := bars[0].Close
	maxClose := bars[0].Close
	totalVolume := int64(0)

	for _, bar := range bars {
		if bar.Close.LessThan(minClose) {
			minClose = bar.Close
		}

		if bar.Close.GreaterThan(maxClose) {
			maxClose = bar.Close
		}

		totalVolume += bar.Volume
	}

	return Summary{
		Rows:      len(bars),
		StartDate: bars[0].Time,
		EndDate:   bars[len(bars)-1].Time,
		MinClose:  minClose,
		MaxClose:  maxClose,
		AvgVolume: float64(totalVolume) / float64(len(bars)),
	}
}

// MissingWeekdays lists weekdays between the first and last bar with no
// bar, a rough gap check for daily series. Weekends are skipped;
// exchange holidays will show up and need human judgment.
func MissingWeekdays(bars []types.Bar) []time.Time {
	if len(bars) < 2 {
		return nil
	}

	present := make(map[string]bool, len(bars))
	for _, bar := range bars {
		present[bar.Time.Format("2006-01-02")] = true
	}

	var missing []time.Time

	for d := bars[0].Time; !d.After(bars[len(bars)-1].Time); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}

		if !present[d.Format("2006-01-02")] {
			missing = append(missing, d)
		}
	}

	return missing
}
