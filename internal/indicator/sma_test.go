package indicator

import (
	"math"
	"testing"
	"time"

	"index-systemv1/internal/model"
)

func testSeries(closes ...float64) model.Series {
	s := make(model.Series, len(closes))
	for i, c := range closes {
		s[i] = model.PricePoint{
			Date:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return s
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func TestComputeSMA_Correctness_Window3(t *testing.T) {
	// Hand-calculated SMA(3) for a known close series:
	// Closes: 100, 102, 104, 103, 105
	// SMA at index 2: (100+102+104)/3 = 102.0000
	// SMA at index 3: (102+104+103)/3 = 103.0000
	// SMA at index 4: (104+103+105)/3 = 104.0000
	line := ComputeSMA(testSeries(100, 102, 104, 103, 105), 3)

	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	valid := []bool{false, false, true, true, true}

	if len(line) != 5 {
		t.Fatalf("expected 5 samples, got %d", len(line))
	}
	for i := range line {
		if line[i].Valid != valid[i] {
			t.Errorf("index %d: Valid=%v, want %v", i, line[i].Valid, valid[i])
		}
		if valid[i] {
			assertClose(t, "SMA(3)", line[i].Value, expected[i], 0.0001)
		}
	}
}

func TestComputeSMA_SpecScenario(t *testing.T) {
	// Closes [100, 102, 101, 105, 110]:
	// SMA(2) = [_, 101, 101.5, 103, 107.5]
	// SMA(3) = [_, _, 101, 102.6667, 105.3333]
	s := testSeries(100, 102, 101, 105, 110)

	sma2 := ComputeSMA(s, 2)
	want2 := []float64{0, 101, 101.5, 103, 107.5}
	for i := 1; i < len(want2); i++ {
		if !sma2[i].Valid {
			t.Fatalf("SMA(2) index %d should be valid", i)
		}
		assertClose(t, "SMA(2)", sma2[i].Value, want2[i], 0.0001)
	}
	if sma2[0].Valid {
		t.Error("SMA(2) index 0 should be undefined")
	}

	sma3 := ComputeSMA(s, 3)
	if sma3[0].Valid || sma3[1].Valid {
		t.Error("SMA(3) leading samples should be undefined")
	}
	assertClose(t, "SMA(3)[2]", sma3[2].Value, 101.0, 0.0001)
	assertClose(t, "SMA(3)[3]", sma3[3].Value, 102.0+2.0/3.0, 0.0001)
	assertClose(t, "SMA(3)[4]", sma3[4].Value, 105.0+1.0/3.0, 0.0001)
}

func TestComputeSMA_NoLookAheadLeak(t *testing.T) {
	for _, window := range []int{1, 2, 5, 20} {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = 100 + float64(i)
		}
		line := ComputeSMA(testSeries(closes...), window)
		for i := 0; i < window-1; i++ {
			if line[i].Valid {
				t.Errorf("window %d: index %d has a value before enough history", window, i)
			}
		}
		for i := window - 1; i < len(line); i++ {
			if !line[i].Valid {
				t.Errorf("window %d: index %d should be valid", window, i)
			}
		}
	}
}

func TestComputeSMA_LastIndexMatchesPlainMean(t *testing.T) {
	// Cross-check against a naive reference: the SMA at the final index must
	// equal the plain arithmetic mean of the last w closes.
	closes := []float64{99.5, 101.25, 100.0, 103.75, 102.5, 104.0, 101.1, 105.3}
	s := testSeries(closes...)

	for _, w := range []int{1, 2, 3, 5, 8} {
		line := ComputeSMA(s, w)
		last := line[len(line)-1]
		if !last.Valid {
			t.Fatalf("window %d: last sample should be valid", w)
		}
		sum := 0.0
		for _, c := range closes[len(closes)-w:] {
			sum += c
		}
		assertClose(t, "reference mean", last.Value, sum/float64(w), 1e-9)
	}
}

func TestComputeSMA_WindowExceedsSeries(t *testing.T) {
	line := ComputeSMA(testSeries(100, 101, 102), 10)
	if len(line) != 3 {
		t.Fatalf("expected aligned length 3, got %d", len(line))
	}
	for i, p := range line {
		if p.Valid {
			t.Errorf("index %d: expected undefined, got %.4f", i, p.Value)
		}
	}
}

func TestSMA_Reset(t *testing.T) {
	sma := NewSMA(3)
	for _, c := range []float64{100, 102, 104} {
		sma.Update(c)
	}
	if !sma.Ready() {
		t.Fatal("expected ready after full window")
	}
	sma.Reset()
	if sma.Ready() {
		t.Error("expected not ready after Reset")
	}
	if sma.Value() != 0 {
		t.Errorf("expected zero value after Reset, got %.4f", sma.Value())
	}
}

func TestComputeSMA_Deterministic(t *testing.T) {
	s := testSeries(100, 102, 101, 105, 110, 108, 111)
	a := ComputeSMA(s, 3)
	b := ComputeSMA(s, 3)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d: %v != %v", i, a[i], b[i])
		}
	}
}
