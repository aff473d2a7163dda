package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/prices.db"
}

// Writer is a single-connection SQLite writer. It keeps the local mirror of
// the daily price series and the journal of completed backtest runs.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New opens the database in WAL mode and ensures the schema exists.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer pool
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol   TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS backtest_runs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol           TEXT    NOT NULL,
			short_window     INTEGER NOT NULL,
			long_window      INTEGER NOT NULL,
			starting_capital REAL    NOT NULL,
			execution_lag    INTEGER NOT NULL,
			commission_rate  REAL    NOT NULL,
			total_return_pct REAL    NOT NULL,
			max_drawdown_pct REAL    NOT NULL,
			trade_count      INTEGER NOT NULL,
			win_rate_pct     REAL,
			sharpe_ratio     REAL,
			created_at       INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_symbol ON backtest_runs(symbol);
	`)
	return err
}

// UpsertPrices writes a series for one symbol in a single transaction.
// Re-writing a day the mirror already has replaces it, so a provider
// restating the current day converges on the final close.
func (w *Writer) UpsertPrices(symbol string, series model.Series) error {
	if len(series) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	start := time.Now()
	for _, p := range series {
		if _, err := stmt.Exec(symbol, p.Date.Unix(), p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("[sqlite] committed %d rows for %s in %v", len(series), symbol, time.Since(start))
	return nil
}

// LastDate returns the newest stored day for a symbol. ok=false when the
// mirror has no rows for it.
func (w *Writer) LastDate(symbol string) (time.Time, bool, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(ts) FROM daily_prices WHERE symbol = ?`, symbol,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return time.Unix(ts.Int64, 0).UTC(), true, nil
}

// ReadAll returns the full stored series for a symbol, oldest first. The
// pipeline backtests over this after landing new bars, so a run never sees
// less history than the mirror holds.
func (w *Writer) ReadAll(symbol string) (model.Series, error) {
	rows, err := w.db.Query(`
		SELECT ts, open, high, low, close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY ts ASC
	`, symbol)
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

// RecordRun journals one completed backtest for later inspection.
func (w *Writer) RecordRun(symbol string, cfg backtest.Config, rep model.Report) error {
	var winRate, sharpe any
	if rep.WinRatePct != nil {
		winRate = *rep.WinRatePct
	}
	if rep.SharpeRatio != nil {
		sharpe = *rep.SharpeRatio
	}

	_, err := w.db.Exec(`
		INSERT INTO backtest_runs
			(symbol, short_window, long_window, starting_capital, execution_lag, commission_rate,
			 total_return_pct, max_drawdown_pct, trade_count, win_rate_pct, sharpe_ratio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		symbol, cfg.ShortWindow, cfg.LongWindow, cfg.StartingCapital, cfg.ExecutionLag, cfg.CommissionRate,
		rep.TotalReturnPct, rep.MaxDrawdownPct, rep.TradeCount, winRate, sharpe, time.Now().Unix(),
	)
	return err
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
