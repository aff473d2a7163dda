// Package indicator computes rolling trend indicators over a daily price series.
//
// Batch output is index-aligned to the input series: the output always has one
// sample per price point, with Valid=false wherever fewer than window points of
// history exist. No sample ever depends on data after its own index.
package indicator

// Point is one aligned indicator sample. Valid=false means "not yet available"
// (insufficient history for the window), never a numeric value.
type Point struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Set maps window length to an aligned indicator line. Every line in a Set has
// the same length as the series it was computed from.
type Set map[int][]Point
