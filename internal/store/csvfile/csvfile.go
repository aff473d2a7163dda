// Package csvfile exports and loads daily price snapshots as CSV, the
// hand-off format for spreadsheets and notebooks.
package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"index-systemv1/internal/model"
)

const dateLayout = "2006-01-02"

var header = []string{"date", "open", "high", "low", "close", "volume"}

// Export writes the newest n rows of the series (the whole series when
// n <= 0 or exceeds its length) to path, oldest first, creating parent
// directories as needed. The file is replaced atomically via a temp file
// so a concurrent reader never sees a partial snapshot.
func Export(path string, series model.Series, n int) error {
	if n <= 0 || n > len(series) {
		n = len(series)
	}
	tail := series[len(series)-n:]

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("csv export: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.csv")
	if err != nil {
		return fmt.Errorf("csv export: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("csv header: %w", err)
	}
	for _, p := range tail {
		rec := []string{
			p.Date.Format(dateLayout),
			formatPrice(p.Open),
			formatPrice(p.High),
			formatPrice(p.Low),
			formatPrice(p.Close),
			formatPrice(p.Volume),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("csv row %s: %w", rec[0], err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("csv flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csv close: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

// Load reads a CSV written by Export back into a series.
func Load(path string) (model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv load: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv load: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv load %s: empty file", path)
	}

	var series model.Series
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("csv load %s: row %d has %d fields", path, i+2, len(rec))
		}
		date, err := time.ParseInLocation(dateLayout, rec[0], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("csv load %s: row %d: %w", path, i+2, err)
		}
		vals := make([]float64, 5)
		for j := 1; j < len(rec); j++ {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("csv load %s: row %d col %s: %w", path, i+2, header[j], err)
			}
			vals[j-1] = v
		}
		series = append(series, model.PricePoint{
			Date: date, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return series, nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
