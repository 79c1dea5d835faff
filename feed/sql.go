package feed

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rustyeddy/polypaper/market"
	"github.com/shopspring/decimal"

	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultTable is the candles table SQLSource reads when none is given.
const DefaultTable = "candles"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLSource reads bars from a candles table:
//
//	symbol TEXT, ts_ms BIGINT, open, high, low, close, volume NUMERIC
//
// Any database/sql driver registered with sqlx works. sqlite3 and pgx are
// linked in.
type SQLSource struct {
	db    *sqlx.DB
	table string
}

type candleRow struct {
	Symbol string          `db:"symbol"`
	TsMs   int64           `db:"ts_ms"`
	Open   decimal.Decimal `db:"open"`
	High   decimal.Decimal `db:"high"`
	Low    decimal.Decimal `db:"low"`
	Close  decimal.Decimal `db:"close"`
	Volume decimal.Decimal `db:"volume"`
}

// OpenSQL connects to driver ("sqlite3" or "pgx") at dsn.
func OpenSQL(driver, dsn, table string) (*SQLSource, error) {
	switch driver {
	case "sqlite3", "pgx":
	default:
		return nil, fmt.Errorf("feed: unsupported sql driver %q (supported: pgx, sqlite3)", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("feed: connect %s: %w", driver, err)
	}
	src, err := NewSQLSource(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return src, nil
}

// NewSQLSource wraps an open database. An empty table means DefaultTable.
func NewSQLSource(db *sqlx.DB, table string) (*SQLSource, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("feed: invalid table name %q", table)
	}
	return &SQLSource{db: db, table: table}, nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the candles table when missing.
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		symbol TEXT NOT NULL,
		ts_ms  BIGINT NOT NULL,
		open   NUMERIC NOT NULL,
		high   NUMERIC NOT NULL,
		low    NUMERIC NOT NULL,
		close  NUMERIC NOT NULL,
		volume NUMERIC NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, ts_ms)
	)`)
	return err
}

// InsertBars writes bars in one transaction.
func (s *SQLSource) InsertBars(ctx context.Context, bars []market.Bar) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	q := `INSERT INTO ` + s.table + ` (symbol, ts_ms, open, high, low, close, volume)
		VALUES (:symbol, :ts_ms, :open, :high, :low, :close, :volume)`
	for _, b := range bars {
		row := candleRow{
			Symbol: b.Symbol,
			TsMs:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
		if _, err := tx.NamedExecContext(ctx, q, row); err != nil {
			return fmt.Errorf("feed: insert %s@%d: %w", b.Symbol, b.Timestamp, err)
		}
	}
	return tx.Commit()
}

func (s *SQLSource) LoadBars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error) {
	from, to := int64(math.MinInt64), int64(math.MaxInt64)
	if !start.IsZero() {
		from = start.UnixMilli()
	}
	if !end.IsZero() {
		to = end.UnixMilli()
	}

	q := `SELECT symbol, ts_ms, open, high, low, close, volume FROM ` + s.table +
		` WHERE ts_ms >= ? AND ts_ms < ?`
	args := []any{from, to}
	if symbol != "" {
		q += ` AND symbol = ?`
		args = append(args, symbol)
	}
	q += ` ORDER BY ts_ms`

	var rows []candleRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("feed: load %s: %w", symbol, err)
	}

	bars := make([]market.Bar, len(rows))
	for i, r := range rows {
		bars[i] = market.Bar{
			Symbol:    r.Symbol,
			Timestamp: r.TsMs,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		}
	}
	return bars, nil
}
