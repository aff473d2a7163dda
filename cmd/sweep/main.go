// cmd/sweep runs the crossover backtest over a grid of SMA window pairs and
// prints a ranked table.
//
// Usage:
//
//	go run ./cmd/sweep --shorts=10,20,50 --longs=100,150,200
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"
	"index-systemv1/internal/store/csvfile"
	sqlitestore "index-systemv1/internal/store/sqlite"
	"index-systemv1/internal/sweep"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	symbol := flag.String("symbol", "^GSPC", "Symbol to sweep")
	dbPath := flag.String("db", "data/prices.db", "Path to SQLite price mirror")
	csvPath := flag.String("csv", "", "Load the series from a CSV export instead of SQLite")
	shorts := flag.String("shorts", "10,20,50", "Comma-separated short windows")
	longs := flag.String("longs", "100,150,200", "Comma-separated long windows")
	capital := flag.Float64("capital", 100_000, "Starting capital")
	lag := flag.Int("lag", 1, "Bars between signal and fill")
	commission := flag.Float64("commission", 0, "Commission rate as a fraction of traded notional")
	workers := flag.Int("workers", 0, "Concurrent backtests (0 = NumCPU)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	series := loadSeries(*csvPath, *dbPath, *symbol)
	log.Printf("[sweep] loaded %d bars for %s", len(series), *symbol)

	spec := sweep.Spec{
		ShortWindows: parseWindows(*shorts),
		LongWindows:  parseWindows(*longs),
		Base: backtest.Config{
			StartingCapital: *capital,
			ExecutionLag:    *lag,
			CommissionRate:  *commission,
		},
		Workers: *workers,
	}

	outcomes, err := sweep.Run(ctx, series, spec)
	if err != nil {
		log.Fatalf("[sweep] run failed: %v", err)
	}

	printTable(outcomes)

	if best, ok := sweep.Best(outcomes); ok {
		fmt.Printf("\nBest pair: SMA %d/%d with %.2f%% total return\n",
			best.Config.ShortWindow, best.Config.LongWindow, best.Report.TotalReturnPct)
	}
}

func loadSeries(csvPath, dbPath, symbol string) model.Series {
	if csvPath != "" {
		series, err := csvfile.Load(csvPath)
		if err != nil {
			log.Fatalf("[sweep] csv load failed: %v", err)
		}
		return series
	}
	reader, err := sqlitestore.NewReader(dbPath)
	if err != nil {
		log.Fatalf("[sweep] sqlite open failed: %v", err)
	}
	defer reader.Close()
	series, err := reader.ReadAll(symbol)
	if err != nil {
		log.Fatalf("[sweep] sqlite read failed: %v", err)
	}
	return series
}

func parseWindows(s string) []int {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			log.Fatalf("[sweep] invalid window %q", p)
		}
		out = append(out, n)
	}
	return out
}

func printTable(outcomes []sweep.Outcome) {
	ranked := make([]sweep.Outcome, len(outcomes))
	copy(ranked, outcomes)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ranked[i].Report, ranked[j].Report
		if ri == nil {
			return false
		}
		if rj == nil {
			return true
		}
		return ri.TotalReturnPct > rj.TotalReturnPct
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SHORT\tLONG\tRETURN%\tMAXDD%\tTRADES\tWINRATE\tSHARPE")
	for _, o := range ranked {
		if o.Err != nil {
			fmt.Fprintf(w, "%d\t%d\terror: %v\t\t\t\t\n", o.Config.ShortWindow, o.Config.LongWindow, o.Err)
			continue
		}
		winRate, sharpe := "n/a", "n/a"
		if o.Report.WinRatePct != nil {
			winRate = fmt.Sprintf("%.1f%%", *o.Report.WinRatePct)
		}
		if o.Report.SharpeRatio != nil {
			sharpe = fmt.Sprintf("%.2f", *o.Report.SharpeRatio)
		}
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%.2f\t%d\t%s\t%s\n",
			o.Config.ShortWindow, o.Config.LongWindow,
			o.Report.TotalReturnPct, o.Report.MaxDrawdownPct,
			o.Report.TradeCount, winRate, sharpe)
	}
	w.Flush()
}
