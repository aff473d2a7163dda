package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"index-systemv1/internal/model"
)

func seedSeries(days int) model.Series {
	s := make(model.Series, days)
	for i := range s {
		s[i] = model.PricePoint{
			Date:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   100 + float64(i),
			High:   101.5 + float64(i),
			Low:    99.25 + float64(i),
			Close:  100.75 + float64(i),
			Volume: 1_000_000,
		}
	}
	return s
}

func TestExportLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "latest.csv")
	series := seedSeries(5)

	if err := Export(path, series, 0); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(series) {
		t.Fatalf("loaded %d rows, want %d", len(got), len(series))
	}
	for i := range got {
		if !got[i].Date.Equal(series[i].Date) || got[i].Close != series[i].Close || got[i].Volume != series[i].Volume {
			t.Errorf("row %d: got %+v want %+v", i, got[i], series[i])
		}
	}
}

func TestExportLatestN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.csv")
	series := seedSeries(10)

	if err := Export(path, series, 3); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("loaded %d rows, want 3", len(got))
	}
	// Newest three, oldest first.
	if !got[0].Date.Equal(series[7].Date) || !got[2].Date.Equal(series[9].Date) {
		t.Errorf("wrong slice exported: first=%v last=%v", got[0].Date, got[2].Date)
	}
}

func TestExportHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.csv")
	if err := Export(path, seedSeries(1), 0); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	first := strings.SplitN(string(raw), "\n", 2)[0]
	if first != "date,open,high,low,close,volume" {
		t.Errorf("header = %q", first)
	}
}

func TestExportOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.csv")
	if err := Export(path, seedSeries(8), 0); err != nil {
		t.Fatal(err)
	}
	if err := Export(path, seedSeries(2), 0); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("loaded %d rows after overwrite, want 2", len(got))
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(bad, []byte("date,open,high,low,close,volume\nnot-a-date,1,2,3,4,5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("malformed date accepted")
	}

	if _, err := Load(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("missing file accepted")
	}
}
