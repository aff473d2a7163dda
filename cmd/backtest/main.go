// cmd/backtest runs the SMA crossover backtest once over stored history and
// prints the signals and the report.
//
// Usage:
//
//	go run ./cmd/backtest --short=50 --long=200 --capital=100000
//	go run ./cmd/backtest --csv=data/latest.csv --short=20 --long=50
package main

import (
	"flag"
	"fmt"
	"log"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"
	"index-systemv1/internal/store/csvfile"
	sqlitestore "index-systemv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	// Flags
	symbol := flag.String("symbol", "^GSPC", "Symbol to backtest")
	dbPath := flag.String("db", "data/prices.db", "Path to SQLite price mirror")
	csvPath := flag.String("csv", "", "Load the series from a CSV export instead of SQLite")
	short := flag.Int("short", 50, "Short SMA window")
	long := flag.Int("long", 200, "Long SMA window")
	capital := flag.Float64("capital", 100_000, "Starting capital")
	lag := flag.Int("lag", 1, "Bars between signal and fill")
	commission := flag.Float64("commission", 0, "Commission rate as a fraction of traded notional")
	journal := flag.Bool("journal", true, "Record the run in the SQLite journal")
	flag.Parse()

	cfg := backtest.Config{
		ShortWindow:     *short,
		LongWindow:      *long,
		StartingCapital: *capital,
		ExecutionLag:    *lag,
		CommissionRate:  *commission,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[backtest] invalid config: %v", err)
	}

	series, mirror := loadSeries(*csvPath, *dbPath, *symbol)
	if mirror != nil {
		defer mirror.Close()
	}
	log.Printf("[backtest] loaded %d bars for %s", len(series), *symbol)

	out, err := backtest.Run(series, cfg)
	if err != nil {
		log.Fatalf("[backtest] run failed: %v", err)
	}

	for _, sig := range out.Signals {
		fmt.Printf("  [%s] %s\n", sig.Date.Format("2006-01-02"), sig.Kind)
	}

	if *journal && mirror != nil {
		if err := mirror.RecordRun(*symbol, cfg, out.Report); err != nil {
			log.Printf("[backtest] journal write failed: %v", err)
		}
	}

	printSummary(*symbol, cfg, out)
}

func loadSeries(csvPath, dbPath, symbol string) (model.Series, *sqlitestore.Writer) {
	if csvPath != "" {
		series, err := csvfile.Load(csvPath)
		if err != nil {
			log.Fatalf("[backtest] csv load failed: %v", err)
		}
		return series, nil
	}

	mirror, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: dbPath})
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	reader, err := sqlitestore.NewReader(dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer reader.Close()

	series, err := reader.ReadAll(symbol)
	if err != nil {
		log.Fatalf("[backtest] sqlite read failed: %v", err)
	}
	return series, mirror
}

func printSummary(symbol string, cfg backtest.Config, out *backtest.RunOutput) {
	winRate := "n/a"
	if out.Report.WinRatePct != nil {
		winRate = fmt.Sprintf("%.1f%%", *out.Report.WinRatePct)
	}
	sharpe := "n/a"
	if out.Report.SharpeRatio != nil {
		sharpe = fmt.Sprintf("%.2f", *out.Report.SharpeRatio)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        BACKTEST COMPLETE             ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Symbol:            %-16s ║\n", symbol)
	fmt.Printf("║  SMA windows:       %d/%-13d ║\n", cfg.ShortWindow, cfg.LongWindow)
	fmt.Printf("║  Signals:           %-16d ║\n", len(out.Signals))
	fmt.Printf("║  Trades:            %-16d ║\n", out.Report.TradeCount)
	fmt.Printf("║  Total return:      %-15.2f%% ║\n", out.Report.TotalReturnPct)
	fmt.Printf("║  Max drawdown:      %-15.2f%% ║\n", out.Report.MaxDrawdownPct)
	fmt.Printf("║  Win rate:          %-16s ║\n", winRate)
	fmt.Printf("║  Sharpe:            %-16s ║\n", sharpe)
	fmt.Println("╚══════════════════════════════════════╝")
}
