package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"index-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the local mirror and the run journal.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadAll returns the full stored series for a symbol, oldest first.
func (r *Reader) ReadAll(symbol string) (model.Series, error) {
	return r.ReadRange(symbol, time.Time{}, time.Time{})
}

// ReadRange returns the stored series for a symbol within [from, to],
// oldest first. A zero bound is open on that side.
func (r *Reader) ReadRange(symbol string, from, to time.Time) (model.Series, error) {
	lo := int64(0)
	if !from.IsZero() {
		lo = from.Unix()
	}
	hi := int64(1<<62 - 1)
	if !to.IsZero() {
		hi = to.Unix()
	}

	rows, err := r.db.Query(`
		SELECT ts, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("sqlite query daily_prices: %w", err)
	}
	defer rows.Close()

	var series model.Series
	for rows.Next() {
		var p model.PricePoint
		var tsUnix int64
		if err := rows.Scan(&tsUnix, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan daily_prices: %w", err)
		}
		p.Date = time.Unix(tsUnix, 0).UTC()
		series = append(series, p)
	}
	return series, rows.Err()
}

// RunRecord is one journaled backtest run.
type RunRecord struct {
	ID             int64    `json:"id"`
	Symbol         string   `json:"symbol"`
	ShortWindow    int      `json:"short_window"`
	LongWindow     int      `json:"long_window"`
	TotalReturnPct float64  `json:"total_return_pct"`
	MaxDrawdownPct float64  `json:"max_drawdown_pct"`
	TradeCount     int      `json:"trade_count"`
	WinRatePct     *float64 `json:"win_rate_pct,omitempty"`
	SharpeRatio    *float64 `json:"sharpe_ratio,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

// RecentRuns returns the last N journaled runs, newest first.
func (r *Reader) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, short_window, long_window,
		       total_return_pct, max_drawdown_pct, trade_count, win_rate_pct, sharpe_ratio, created_at
		FROM backtest_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query backtest_runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rec RunRecord
		var winRate, sharpe sql.NullFloat64
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.ShortWindow, &rec.LongWindow,
			&rec.TotalReturnPct, &rec.MaxDrawdownPct, &rec.TradeCount, &winRate, &sharpe, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite scan backtest_runs: %w", err)
		}
		if winRate.Valid {
			v := winRate.Float64
			rec.WinRatePct = &v
		}
		if sharpe.Valid {
			v := sharpe.Float64
			rec.SharpeRatio = &v
		}
		rec.CreatedAt = time.Unix(createdAt, 0).UTC().Format(time.RFC3339)
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
