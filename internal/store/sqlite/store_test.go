package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"index-systemv1/internal/backtest"
	"index-systemv1/internal/model"
)

func openTestStore(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.db")

	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })

	r, err := NewReader(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return w, r
}

func seedSeries(days int) model.Series {
	s := make(model.Series, days)
	for i := range s {
		s[i] = model.PricePoint{
			Date:   time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   100 + float64(i),
			High:   101 + float64(i),
			Low:    99 + float64(i),
			Close:  100.5 + float64(i),
			Volume: 1000,
		}
	}
	return s
}

func TestPricesRoundTrip(t *testing.T) {
	w, r := openTestStore(t)
	series := seedSeries(5)

	if err := w.UpsertPrices("^GSPC", series); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadAll("^GSPC")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(series) {
		t.Fatalf("read %d rows, want %d", len(got), len(series))
	}
	for i := range got {
		if !got[i].Date.Equal(series[i].Date) || got[i].Close != series[i].Close {
			t.Errorf("row %d: got %+v want %+v", i, got[i], series[i])
		}
	}

	// Other symbols stay invisible.
	other, err := r.ReadAll("^NDX")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Errorf("read %d rows for unseeded symbol", len(other))
	}
}

func TestWriterReadAll_ReturnsFullHistory(t *testing.T) {
	w, _ := openTestStore(t)
	if err := w.UpsertPrices("^GSPC", seedSeries(4)); err != nil {
		t.Fatal(err)
	}
	// A later incremental batch only carries the newest days.
	if err := w.UpsertPrices("^GSPC", seedSeries(6)[4:]); err != nil {
		t.Fatal(err)
	}

	got, err := w.ReadAll("^GSPC")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 6 {
		t.Fatalf("read %d rows, want 6", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Date.Before(got[i].Date) {
			t.Fatalf("rows not ascending: %v then %v", got[i-1].Date, got[i].Date)
		}
	}
}

func TestUpsertReplacesRestatedDay(t *testing.T) {
	w, r := openTestStore(t)
	series := seedSeries(3)

	if err := w.UpsertPrices("^GSPC", series); err != nil {
		t.Fatal(err)
	}
	restated := series[2]
	restated.Close = 999
	if err := w.UpsertPrices("^GSPC", model.Series{restated}); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadAll("^GSPC")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d rows, want 3", len(got))
	}
	if got[2].Close != 999 {
		t.Errorf("restated close = %v, want 999", got[2].Close)
	}
}

func TestLastDate(t *testing.T) {
	w, _ := openTestStore(t)

	if _, ok, err := w.LastDate("^GSPC"); err != nil || ok {
		t.Fatalf("empty mirror: ok=%v err=%v, want ok=false", ok, err)
	}

	series := seedSeries(4)
	if err := w.UpsertPrices("^GSPC", series); err != nil {
		t.Fatal(err)
	}
	last, ok, err := w.LastDate("^GSPC")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !last.Equal(series[3].Date) {
		t.Errorf("last = %v ok=%v, want %v", last, ok, series[3].Date)
	}
}

func TestRunJournal(t *testing.T) {
	w, r := openTestStore(t)

	wr := 50.0
	cfg := backtest.Config{ShortWindow: 50, LongWindow: 200, StartingCapital: 100_000, ExecutionLag: 1}
	rep := model.Report{TotalReturnPct: 12.5, MaxDrawdownPct: 4.2, TradeCount: 2, WinRatePct: &wr}
	if err := w.RecordRun("^GSPC", cfg, rep); err != nil {
		t.Fatal(err)
	}
	rep2 := model.Report{TotalReturnPct: -3, MaxDrawdownPct: 9, TradeCount: 0}
	if err := w.RecordRun("^GSPC", cfg, rep2); err != nil {
		t.Fatal(err)
	}

	runs, err := r.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].TotalReturnPct != -3 || runs[1].TotalReturnPct != 12.5 {
		t.Errorf("unexpected order: %+v", runs)
	}
	if runs[0].WinRatePct != nil {
		t.Errorf("run without round trips has win rate %v, want nil", *runs[0].WinRatePct)
	}
	if runs[1].WinRatePct == nil || *runs[1].WinRatePct != 50 {
		t.Errorf("win rate = %v, want 50", runs[1].WinRatePct)
	}
}
